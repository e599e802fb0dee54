package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/maruel/tutordb/internal/accounts"
	"github.com/maruel/tutordb/internal/catalog"
	"github.com/maruel/tutordb/internal/export"
	"github.com/maruel/tutordb/internal/store"
	"github.com/maruel/tutordb/internal/wallet"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("tutordb "+name, flag.ContinueOnError)
}

// seed populates st from the configured fixture when it is empty. Without a
// fixture it does nothing.
func (a *app) seed(ctx context.Context, st *store.Store) (store.SeedResult, error) {
	if a.fixture == "" {
		return store.SeedResult{Skipped: true}, nil
	}
	src, err := store.ParseFixtureSource(a.fixture)
	if err != nil {
		return store.SeedResult{}, err
	}
	return st.SeedIfEmpty(ctx, src)
}

// openSeeded opens the store and seeds it on first use. A fixture that cannot
// be fetched only warns; the store stays usable for writes.
func (a *app) openSeeded(ctx context.Context) (*store.Store, error) {
	st, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := a.seed(ctx, st); err != nil {
		var fe *store.SeedFetchError
		if !errors.As(err, &fe) {
			_ = st.Close()
			return nil, err
		}
		slog.WarnContext(ctx, "Failed to fetch fixture, store left unseeded", "source", fe.Source, "err", fe.Err)
	}
	return st, nil
}

func cmdSeed(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.fixture == "" {
		return errors.New("no fixture: pass -fixture or set fixture_url in config.json")
	}
	st, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	res, err := a.seed(ctx, st)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintln(a.out, "Store already populated; nothing to do")
		return nil
	}
	fmt.Fprintf(a.out, "Seeded %d records\n", res.Total())
	return nil
}

// listings returns the joined course catalog.
func listings(ctx context.Context, st *store.Store) ([]catalog.Listing, error) {
	courses, err := st.Courses().All(ctx)
	if err != nil {
		return nil, err
	}
	users, err := st.Users().All(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Join(courses, users), nil
}

func printListings(w io.Writer, ls []catalog.Listing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tMENTOR\tPRICE\tRATING\tREVIEWS")
	for i := range ls {
		l := &ls[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%.1f\t%d\n", l.ID, l.Title, l.MentorName, l.PricePerSession, l.AverageRating, l.TotalReviews)
	}
	return tw.Flush()
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("search")
	queryPath := fs.String("query", "", "YAML saved query")
	sortKey := fs.String("sort", "", "Sort key: "+fmt.Sprint(catalog.SortKeys))
	search := fs.String("search", "", "Search text, overrides the query's")
	pages := fs.Int("pages", 1, "Number of pages to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q := &catalog.SavedQuery{Sort: catalog.SortRelevance}
	if *queryPath != "" {
		var err error
		if q, err = catalog.LoadQuery(*queryPath); err != nil {
			return err
		}
	}
	if *sortKey != "" {
		k, ok := catalog.ParseSortKey(*sortKey)
		if !ok {
			return fmt.Errorf("unknown sort key %q", *sortKey)
		}
		q.Sort = k
	}
	if *search != "" {
		q.Filter.Search = *search
	}

	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	ls, err := listings(ctx, st)
	if err != nil {
		return err
	}
	b := catalog.NewBrowser(ls, a.cfg.PageSize)
	b.SetFilter(q.Filter)
	b.SetSort(q.Sort)
	for i := 1; i < *pages && b.HasMore(); i++ {
		b.LoadMore()
	}
	if len(b.Results()) == 0 {
		fmt.Fprintln(a.out, "No courses match these filters")
		return nil
	}
	if err := printListings(a.out, b.Visible()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, b.Summary())
	return nil
}

func cmdTransactions(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("transactions")
	userID := fs.String("user", "", "User ID")
	typ := fs.String("type", wallet.All, "Transaction type or all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("-user is required")
	}
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	u, err := st.Users().Get(ctx, *userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %q: %w", *userID, store.ErrNotFound)
	}
	txs, err := st.TransactionsForUser(ctx, u.ID)
	if err != nil {
		return err
	}
	entries := wallet.FilterEntries(wallet.History(txs, u.ExcelCoinBalance), *typ)
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No transactions")
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tBALANCE\tDESCRIPTION")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%+g\t%g\t%s\n", e.Date.Time().Format("2006-01-02"), e.Type, e.Amount, e.RunningBalance, e.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Balance: %g (%s)\n", u.ExcelCoinBalance, wallet.Tier(u.ExcelCoinBalance))
	return nil
}

func cmdFavorite(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("favorite")
	userID := fs.String("user", "", "User ID")
	courseID := fs.String("course", "", "Course ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	_, added, err := accounts.NewService(st, a.cfg).ToggleFavorite(ctx, *userID, *courseID)
	if err != nil {
		return err
	}
	if added {
		fmt.Fprintf(a.out, "Added %s to favorites\n", *courseID)
	} else {
		fmt.Fprintf(a.out, "Removed %s from favorites\n", *courseID)
	}
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	req := &accounts.RegisterRequest{}
	fs.StringVar(&req.FullName, "name", "", "Full name")
	fs.StringVar(&req.Email, "email", "", "Email")
	fs.StringVar(&req.Username, "username", "", "Username")
	fs.StringVar(&req.Password, "password", "", "Password, at least 8 characters")
	role := fs.String("role", string(store.RoleStudent), "student or mentor")
	fs.StringVar(&req.InstructorType, "instructor-type", "", "Instructor type of a mentor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Role = store.Role(*role)
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	u, err := accounts.NewService(st, a.cfg).Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u.ID)
	return nil
}

func cmdToken(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("token")
	email := fs.String("email", "", "Email")
	password := fs.String("password", "", "Password")
	verify := fs.String("verify", "", "Token to verify instead of logging in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	svc := accounts.NewService(st, a.cfg)
	if *verify != "" {
		var cu accounts.CurrentUser = accounts.TokenSession{Service: svc, Token: *verify}
		u, err := cu.CurrentUser(ctx)
		if err != nil {
			return err
		}
		if u == nil {
			return errors.New("token user no longer exists")
		}
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", u.ID, u.Email, u.Role)
		return nil
	}
	u, err := svc.Authenticate(ctx, *email, *password)
	if err != nil {
		return err
	}
	token, err := svc.IssueToken(u)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Issued token", "user", u.ID, "ttl", a.cfg.SessionTTL())
	fmt.Fprintln(a.out, token)
	return nil
}

func cmdApply(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("apply")
	userID := fs.String("user", "", "Applicant user ID")
	answersPath := fs.String("answers", "", "JSON file with the onboarding answers")
	decide := fs.String("decide", "", "Application ID to decide instead of submitting")
	approve := fs.Bool("approve", false, "Approve the decided application; rejects it otherwise")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	svc := accounts.NewService(st, a.cfg)
	if *decide != "" {
		ma, err := svc.DecideApplication(ctx, *decide, *approve)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%s\n", ma.ID, ma.Status)
		return nil
	}
	data, err := os.ReadFile(filepath.Clean(*answersPath))
	if err != nil {
		return fmt.Errorf("failed to read answers: %w", err)
	}
	var answers store.MentorApplication
	if err := json.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("failed to parse answers: %w", err)
	}
	ma, err := svc.SubmitApplication(ctx, *userID, &answers)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\n", ma.ID, ma.Status)
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	out := fs.String("out", "", "SQLite file to write; defaults to <data-dir>/export.db")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		*out = filepath.Join(a.dataDir, "export.db")
	}
	st, err := a.openSeeded(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	counts, err := export.SQLite(ctx, st, *out)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	slog.InfoContext(ctx, "Exported store", "path", *out, "rows", total)
	return nil
}
