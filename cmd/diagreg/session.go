package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/diagreg/diagreg/internal/app"
	"github.com/diagreg/diagreg/internal/config"
	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/internal/pipeline"
	"github.com/diagreg/diagreg/internal/platform/logging"
	"github.com/diagreg/diagreg/internal/platform/storeclient"
)

func newStore(cfg *config.Config) app.Store {
	return storeclient.New(cfg.StoreURL, storeclient.WithTimeout(cfg.StoreTimeout))
}

// openSession loads config, connects to the store and loads the record set.
func openSession(cmd *cobra.Command) (*app.Session, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if url, _ := cmd.Flags().GetString("store-url"); url != "" {
		cfg.StoreURL = url
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)
	s := app.NewSession(newStore(cfg), logger)
	if err := s.Load(cmd.Context()); err != nil {
		printNotifications(cmd.ErrOrStderr(), s)
		return nil, nil, err
	}
	return s, cfg, nil
}

func printNotifications(w io.Writer, s *app.Session) {
	for _, n := range s.Notifications(time.Now()) {
		mark := "✓"
		if n.Kind == app.KindError {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	}
}

// viewFlags are the filter, search and sort options shared by list and export.
type viewFlags struct {
	from, to string
	search   string
	field    string
	sort     string
	desc     bool
	page     int
}

func (f *viewFlags) register(cmd *cobra.Command, withPage bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&f.to, "to", "", "End date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "Search term, case-insensitive")
	cmd.Flags().StringVar(&f.field, "field", "", "Restrict search to one field key (default: all fields)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort by field key")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "Sort descending")
	if withPage {
		cmd.Flags().IntVarP(&f.page, "page", "p", 1, "Page number")
	}
}

func checkFieldKey(flag, key string) error {
	if key == "" {
		return nil
	}
	if _, ok := patient.FieldByKey(key); !ok {
		return fmt.Errorf("--%s: unknown field %q", flag, key)
	}
	return nil
}

// apply pushes the flags into the session state in the order a user would
// set them: range, search, sort, then page.
func (f *viewFlags) apply(s *app.Session) error {
	r, err := pipeline.ParseDateRange(f.from, f.to)
	if err != nil {
		return err
	}
	if err := checkFieldKey("field", f.field); err != nil {
		return err
	}
	if err := checkFieldKey("sort", f.sort); err != nil {
		return err
	}

	s.SetRange(r)
	s.SetSearch(f.search, f.field)
	if f.sort != "" {
		dir := pipeline.Ascending
		if f.desc {
			dir = pipeline.Descending
		}
		s.SetSort(pipeline.SortConfig{Field: f.sort, Direction: dir})
	}

	if f.page > 1 && !s.GoToPage(f.page) {
		return fmt.Errorf("page %d out of range (1-%d)", f.page, s.View().TotalPages)
	}
	return nil
}

func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	// one mutation plus the reload that follows it
	return context.WithTimeout(ctx, 2*cfg.StoreTimeout)
}
