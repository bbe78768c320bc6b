package resolve

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
)

// Resolve runs every phase over the module files. Diagnostics go to the
// session reporter; the returned error is a fatal error or the context
// error.
func (rs *Session) Resolve(ctx context.Context) (err error) {
	if !rs.collected {
		rs.Collect()
	}

	start := time.Now()
	if err := rs.sequential(rs.resolveSupertypes); err != nil {
		return err
	}
	for _, f := range rs.Files {
		advance(f, ir.PhaseSuperTypes)
	}
	rs.Metrics.ObservePhase("supertypes", start)

	passes := []struct {
		name  string
		phase ir.ResolvePhase
		run   func(*ir.File)
	}{
		{"status", ir.PhaseStatus, rs.resolveStatus},
		{"types", ir.PhaseTypes, rs.resolveTypes},
		{"bodies", ir.PhaseBodyResolve, rs.resolveBodies},
	}
	for _, p := range passes {
		start := time.Now()
		if err := rs.eachFile(ctx, p.run); err != nil {
			return err
		}
		for _, f := range rs.Files {
			advance(f, p.phase)
		}
		rs.Metrics.ObservePhase(p.name, start)
		rs.Logger.Debug("phase done", "module", rs.Module.Name().String(), "phase", p.name, "elapsed", time.Since(start))
	}

	start = time.Now()
	if err := rs.eachFile(ctx, rs.checkFile); err != nil {
		return err
	}
	if err := rs.sequential(rs.checkTopLevel); err != nil {
		return err
	}
	rs.Metrics.ObservePhase("checks", start)
	rs.Metrics.ObserveStorage(rs.Storage)
	return nil
}

func (rs *Session) sequential(run func()) (err error) {
	defer diagnostics.RecoverFatal(&err)
	run()
	return nil
}

// eachFile runs fn on every file with at most Workers files at a time.
// The first fatal error stops the remaining files.
func (rs *Session) eachFile(ctx context.Context, fn func(*ir.File)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rs.Workers)
	for _, f := range rs.Files {
		g.Go(func() (err error) {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer diagnostics.RecoverFatal(&err)
			fn(f)
			return nil
		})
	}
	return g.Wait()
}
