package policy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper/internal/failure"
)

// Confirmer asks an operator whether to proceed past a Disallowed verdict.
type Confirmer interface {
	Confirm(ctx context.Context, target string, v Verdict) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, target string, v Verdict) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, target string, v Verdict) (bool, error) {
	return f(ctx, target, v)
}

// Deny refuses every override. Used when no operator is attached.
var Deny Confirmer = ConfirmFunc(func(context.Context, string, Verdict) (bool, error) {
	return false, nil
})

// Prompt asks y/N twice on a terminal. Anything but y/yes is a no.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Confirmer.
func (p Prompt) Confirm(ctx context.Context, target string, v Verdict) (bool, error) {
	r := bufio.NewReader(p.In)
	fmt.Fprintf(p.Out, "\n%s\n  url: %s\n  robots: %s\n", v.Advisory, target, v.RobotsURL)
	for _, q := range []string{"Proceed anyway? (y/N): ", "Confirm again to ignore robots.txt (y/N): "} {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprint(p.Out, q)
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("policy: read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
		default:
			return false, nil
		}
	}
	return true, nil
}

// Authorize checks target and resolves a Disallowed verdict: override skips
// the question, otherwise confirm decides. A refusal is a PolicyBlocked
// failure carrying the verdict's advisory.
func (g *Gate) Authorize(ctx context.Context, target string, override bool, confirm Confirmer) (Verdict, error) {
	v, err := g.Check(ctx, target)
	if err != nil || v.Allowed {
		return v, err
	}
	if override {
		g.cfg.Logger.Warn("policy: disallowed path overridden by flag", "url", target)
		v.Advisory += " (overridden)"
		return v, nil
	}
	if confirm == nil {
		confirm = Deny
	}
	ok, err := confirm.Confirm(ctx, target, v)
	if err != nil {
		return v, failure.New(failure.KindPolicyBlocked, "", target, fmt.Errorf("%w: %v", ErrDisallowed, err))
	}
	if !ok {
		return v, failure.New(failure.KindPolicyBlocked, "", target, ErrDisallowed)
	}
	g.cfg.Logger.Warn("policy: disallowed path overridden by operator", "url", target)
	v.Advisory += " (overridden by operator)"
	return v, nil
}
