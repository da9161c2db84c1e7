package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/andrea-alfonsi/nyx/pkg/command"
)

// ErrUnknownFunction is returned when calling a name nothing registered.
var ErrUnknownFunction = errors.New("unknown function")

// Run loads the configuration and every plugin, announces the result and
// executes the configured command. serve blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if err := a.LoadConfig(ctx); err != nil {
		return err
	}
	if err := a.LoadPlugins(ctx); err != nil {
		return err
	}
	a.announceInventory(ctx)

	var err error
	switch a.config.Command {
	case CommandCall:
		err = a.runCall(ctx)
	case CommandServe:
		err = a.serve(ctx)
	default:
		err = a.list()
	}

	a.logger.Debug("App.Run method finished.")
	return err
}

// announceInventory sends the inventory when notify is configured. A failed
// announcement does not stop the host.
func (a *App) announceInventory(ctx context.Context) {
	if a.model.Notify == nil {
		return
	}
	if err := a.announce(ctx, a.model.Notify, a.Inventory()); err != nil {
		a.logger.Warn("Load announcement failed.", "url", a.model.Notify.URL, "error", err)
	}
}

func (a *App) list() error {
	inv := a.Inventory()
	if len(inv.Functions) == 0 {
		a.logger.Warn("No functions registered.")
		return nil
	}

	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tLIBRARY")
	for _, f := range inv.Functions {
		fmt.Fprintf(w, "%s\t%s\n", f.Name, f.Path)
	}
	return w.Flush()
}

func (a *App) runCall(ctx context.Context) error {
	out, err := a.Call(ctx, a.config.Args[0], a.config.Args[1:])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.outW, out)
	return err
}

// Call runs the command registered under name.
func (a *App) Call(ctx context.Context, name string, args []string) (string, error) {
	p, ok := a.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Calling function.", "name", name, "library", p.Library().ID(), "args", len(args))

	var (
		out string
		err error
	)
	p.Use(func(c command.Command) {
		out, err = c.Run(ctx, args)
	})
	if err != nil {
		return "", fmt.Errorf("function %q failed: %w", name, err)
	}
	return out, nil
}

func (a *App) serve(ctx context.Context) error {
	if err := a.healthCheckServer(); err != nil {
		return err
	}
	<-ctx.Done()
	a.logger.Info("Shutdown requested.", "cause", context.Cause(ctx))
	return a.closeHealthCheckServer()
}
