package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/rhuss/memberportal/pkg/account"
	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/auth"
	"github.com/rhuss/memberportal/pkg/auth/password"
	"github.com/rhuss/memberportal/pkg/config"
	"github.com/rhuss/memberportal/pkg/debug"
	"github.com/rhuss/memberportal/pkg/portal"
)

// maxParallel bounds concurrent decisions in bulk commands.
const maxParallel = 4

// cliActor is recorded as the actor of decisions made from the terminal.
var cliActor = &auth.Identity{Subject: "memberctl", Role: api.RoleSuperAdmin}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type cli struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	logger     *slog.Logger
}

type command struct {
	name  string
	usage string
	run   func(c *cli, ctx context.Context, args []string) error
}

var commands = []command{
	{"create-admin", "-email EMAIL [-first NAME] [-last NAME]", (*cli).createAdmin},
	{"list-pending", "[-page N] [-limit N] [-json]", (*cli).listPending},
	{"approve", "[-reason TEXT] ID...", (*cli).approve},
	{"reject", "[-reason TEXT] ID...", (*cli).reject},
	{"suspend", "[-reason TEXT] ID...", (*cli).suspend},
	{"hash-password", "", (*cli).hashPassword},
}

// errUsage marks errors that are answered with the usage text.
var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("memberctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.configPath, "config", "", "path to the YAML config file")
	verbose := fs.Bool("v", false, "log informational messages")
	fs.Usage = func() { c.usage() }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelInfo
	}
	c.logger = slog.New(debug.NewHandler(stderr, level, "text"))

	if fs.NArg() == 0 {
		c.usage()
		return 2
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if err := cmd.run(c, ctx, rest); err != nil {
			if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
				fmt.Fprintf(stderr, "usage: memberctl %s %s\n", cmd.name, cmd.usage)
				return 2
			}
			fmt.Fprintf(stderr, "memberctl %s: %v\n", name, err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "memberctl: unknown command %q\n", name)
	c.usage()
	return 2
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "usage: memberctl [-config path] [-v] <command> [flags] [args]")
	fmt.Fprintln(c.stderr, "\ncommands:")
	for _, cmd := range commands {
		fmt.Fprintf(c.stderr, "  %-14s %s\n", cmd.name, cmd.usage)
	}
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// open loads the configuration and builds the account service.
func (c *cli) open(ctx context.Context) (*portal.App, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	return portal.Build(ctx, cfg, c.logger)
}

func (c *cli) createAdmin(ctx context.Context, args []string) error {
	fs := c.newFlagSet("create-admin")
	email := fs.String("email", "", "administrator email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || fs.NArg() != 0 {
		return errUsage
	}

	pw, err := c.promptPassword("Password: ", true)
	if err != nil {
		return err
	}

	app, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	created, err := app.Accounts.EnsureAdmin(ctx, account.AdminSpec{
		Email:     *email,
		Password:  pw,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(c.stdout, "created super administrator %s\n", api.NormalizeEmail(*email))
	} else {
		fmt.Fprintf(c.stdout, "account %s already exists, left unchanged\n", api.NormalizeEmail(*email))
	}
	return nil
}

func (c *cli) listPending(ctx context.Context, args []string) error {
	fs := c.newFlagSet("list-pending")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", api.DefaultPageLimit, "page size")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	app, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Accounts.ListPending(ctx, *page, *limit)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMEMBERSHIP NO\tNAME\tEMAIL\tREGISTERED")
	for _, m := range result.Members {
		membershipNo := ""
		if m.Profile != nil {
			membershipNo = m.Profile.MembershipNo
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.ID, membershipNo, m.FullName(), m.Email, m.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	p := result.Pagination
	fmt.Fprintf(c.stdout, "page %d of %d, %d pending\n", p.CurrentPage, p.TotalPages, p.TotalCount)
	return nil
}

func (c *cli) approve(ctx context.Context, args []string) error {
	return c.decide(ctx, "approve", args, func(svc *account.Service, id, reason string) (*api.Account, error) {
		return svc.Decide(ctx, cliActor, id, &api.DecisionRequest{Action: api.DecisionApprove, Reason: reason})
	})
}

func (c *cli) reject(ctx context.Context, args []string) error {
	return c.decide(ctx, "reject", args, func(svc *account.Service, id, reason string) (*api.Account, error) {
		return svc.Decide(ctx, cliActor, id, &api.DecisionRequest{Action: api.DecisionReject, Reason: reason})
	})
}

func (c *cli) suspend(ctx context.Context, args []string) error {
	return c.decide(ctx, "suspend", args, func(svc *account.Service, id, reason string) (*api.Account, error) {
		return svc.Suspend(ctx, cliActor, id, &api.SuspendRequest{Reason: reason})
	})
}

type decideFunc func(svc *account.Service, id, reason string) (*api.Account, error)

type decisionResult struct {
	id   string
	acct *api.Account
	err  error
}

// decide applies fn to every id with bounded parallelism. Each id is
// reported on its own line; the command fails if any id failed.
func (c *cli) decide(ctx context.Context, name string, args []string, fn decideFunc) error {
	fs := c.newFlagSet(name)
	reason := fs.String("reason", "", "reason recorded in the audit log")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids := fs.Args()
	if len(ids) == 0 {
		return errUsage
	}

	app, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	results := make([]decisionResult, len(ids))
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, id := range ids {
		g.Go(func() error {
			acct, err := fn(app.Accounts, id, strings.TrimSpace(*reason))
			results[i] = decisionResult{id: id, acct: acct, err: err}
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(c.stderr, "%s: %v\n", r.id, r.err)
			continue
		}
		fmt.Fprintf(c.stdout, "%s: %s\n", r.id, r.acct.Status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(ids))
	}
	return nil
}

func (c *cli) hashPassword(_ context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	pw, err := c.promptPassword("Password: ", false)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, hash)
	return nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// asking twice if confirm is set. Otherwise it reads one line from stdin.
func (c *cli) promptPassword(prompt string, confirm bool) (string, error) {
	if f, ok := c.stdin.(*os.File); ok && isTerminal(int(f.Fd())) {
		pw, err := c.readTerminal(f, prompt)
		if err != nil {
			return "", err
		}
		if confirm {
			again, err := c.readTerminal(f, "Confirm password: ")
			if err != nil {
				return "", err
			}
			if again != pw {
				return "", errors.New("passwords don't match")
			}
		}
		return pw, nil
	}

	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}

func (c *cli) readTerminal(f *os.File, prompt string) (string, error) {
	fmt.Fprint(c.stderr, prompt)
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(c.stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
