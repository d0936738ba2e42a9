package browser

// probeJS reports runtime facts that static markup cannot show: framework
// globals, and whether scrolling to the bottom loads more content within
// 1.2s. The page is scrolled back to the top afterwards; the DOM snapshot
// is taken first.
const probeJS = `async () => {
	const globals = [];
	if (window.React || window.__REACT_DEVTOOLS_GLOBAL_HOOK__ || document.querySelector('[data-reactroot]')) globals.push('react');
	if (window.__NEXT_DATA__ || window.next) globals.push('next');
	if (window.Vue || window.__VUE__) globals.push('vue');
	if (window.__NUXT__ || window.$nuxt) globals.push('nuxt');
	if (window.angular || window.ng || document.querySelector('[ng-version]')) globals.push('angular');
	if (window.__svelte || document.querySelector('[class*="svelte-"]')) globals.push('svelte');

	const sentinel = !!document.querySelector(
		'[data-infinite-scroll], [infinite-scroll], [class*="infinite-scroll"], [class*="infinite_scroll"], [class*="scroll-sentinel"], [class*="load-more"]');
	const viewport = window.innerHeight;
	const before = document.documentElement.scrollHeight;
	let after = before;
	if (before > viewport) {
		window.scrollTo(0, before);
		await new Promise(r => setTimeout(r, 1200));
		after = document.documentElement.scrollHeight;
		window.scrollTo(0, 0);
	}
	return {viewport: viewport, height_before: before, height_after: after, sentinel: sentinel, globals: globals};
}`

type probeResult struct {
	Viewport     int      `json:"viewport"`
	HeightBefore int      `json:"height_before"`
	HeightAfter  int      `json:"height_after"`
	Sentinel     bool     `json:"sentinel"`
	Globals      []string `json:"globals"`
}

// infiniteScroll needs the document to grow after a scroll to the bottom,
// or a scroll-loading marker on a page taller than two viewports. Height
// alone flags every long article.
func (p probeResult) infiniteScroll() bool {
	if p.HeightAfter > p.HeightBefore {
		return true
	}
	return p.Sentinel && p.HeightBefore > 2*p.Viewport
}
