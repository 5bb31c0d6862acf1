package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/buildinfo"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/logger"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/options"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/services/api/apitest"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/utils"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}
	if *password == "" {
		fmt.Fprint(a.out, "Password: ")
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimSpace(line)
	}

	user, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s), session valid until %s\n",
		user.Name, user.Role, a.sess.ExpiresAt().Local().Format("02 Jan 2006 15:04"))
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	u := a.sess.User()
	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\ncan weigh: %t\nexpires: %s\n",
		u.Name, u.Email, a.sess.Role(), a.sess.Role().CanWeigh(),
		a.sess.ExpiresAt().Local().Format("02 Jan 2006 15:04"))
	return nil
}

func cmdOptions(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "options")
	search := fs.String("search", "", "search as you type, debounced")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	kind := "all"
	if fs.NArg() > 0 {
		kind = fs.Arg(0)
	}

	if *search != "" {
		return a.searchOptions(ctx, kind, *search)
	}

	if err := a.catalog.LoadAll(ctx); err != nil {
		return err
	}
	lists := map[string][]models.Option{
		"vendors":   options.Options(a.catalog.Vendors()),
		"vehicles":  options.Options(a.catalog.Vehicles()),
		"materials": options.Options(a.catalog.Materials()),
		"plants":    options.Options(a.catalog.Plants()),
	}
	order := []string{"vendors", "vehicles", "materials", "plants"}
	if kind != "all" {
		if _, ok := lists[kind]; !ok {
			return fmt.Errorf("unknown option list %q", kind)
		}
		order = []string{kind}
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LIST\tID\tLABEL")
	for _, name := range order {
		for _, o := range lists[name] {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, o.Value, o.Label)
		}
	}
	return tw.Flush()
}

// searchOptions runs one lookup through the debounced search path.
func (a *app) searchOptions(ctx context.Context, kind, query string) error {
	var fetch func(ctx context.Context, q string) ([]models.Option, error)
	switch kind {
	case "vendors":
		fetch = optionFetch(a.client.ListVendors)
	case "vehicles":
		fetch = optionFetch(a.client.ListVehicles)
	case "materials":
		fetch = optionFetch(a.client.ListMaterials)
	case "plants":
		fetch = optionFetch(a.client.ListPlants)
	default:
		return fmt.Errorf("--search needs one of vendors, vehicles, materials or plants")
	}

	s := options.NewSearch(fetch, a.cfg.SearchDebounce)
	defer s.Stop()
	s.Type(ctx, query)

	select {
	case r := <-s.Results():
		if r.Err != nil {
			return r.Err
		}
		for _, o := range r.Items {
			fmt.Fprintf(a.out, "%s\t%s\n", o.Value, o.Label)
		}
		if len(r.Items) == 0 {
			fmt.Fprintf(a.out, "no %s match %q\n", kind, query)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func optionFetch[T interface{ Option() models.Option }](list func(context.Context, string) ([]T, error)) func(context.Context, string) ([]models.Option, error) {
	return func(ctx context.Context, q string) ([]models.Option, error) {
		items, err := list(ctx, q)
		if err != nil {
			return nil, err
		}
		return options.Options(items), nil
	}
}

func cmdQuality(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "quality")
	moisture := fs.String("moisture", "", "moisture %")
	dust := fs.String("dust", "", "dust %")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := optionalFloat("moisture", *moisture)
	if err != nil {
		return err
	}
	d, err := optionalFloat("dust", *dust)
	if err != nil {
		return err
	}

	q := utils.QualityFor(m, d)
	fmt.Fprintf(a.out, "impurity %.2f%%, score %d, %s\n", q.Impurity, q.Score, q.Status)
	return nil
}

func optionalFloat(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("--%s must be a number", name)
	}
	return &f, nil
}

func cmdVersion(_ context.Context, a *app, _ []string) error {
	fmt.Fprintln(a.out, buildinfo.Summary())
	return nil
}

// cmdServeFake runs the in-memory entries service for local demos.
func cmdServeFake(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "serve-fake")
	addr := fs.String("addr", ":5000", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logger.New(a.cfg.Env)

	server := &http.Server{
		Addr:              *addr,
		Handler:           apitest.NewServer(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("fake entries service listening", "addr", *addr, "base_url", "http://localhost"+*addr+"/api")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down fake entries service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
