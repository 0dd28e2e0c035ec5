package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/revq/revq/internal/buildinfo"
	"github.com/revq/revq/internal/cache"
	"github.com/revq/revq/internal/config"
	"github.com/revq/revq/internal/difftree"
	"github.com/revq/revq/internal/engine"
	"github.com/revq/revq/internal/git"
	"github.com/revq/revq/internal/watch"
)

const usage = `usage: revq [flags] <command> [args]

commands:
  log                 show the commit history page with review state
  sync                bring the history cache up to date
  review <sha>        toggle the reviewed mark on a commit
  checkout <rev|->    materialize a revision ("-" returns to the default branch)
  update              fetch, return to default branch, pull, resynchronize
  tree <rev> [<rev>]  show the changed-file tree for a commit or revision pair
  diff <rev> <path>   show the classified diff for one file
  show <rev> <path>   print file content at a revision
  refs                list branches and tags
  stats <rev>         print the diff-statistics summary for a commit

flags:
`

func Run() error {
	return run(os.Args[1:])
}

func run(args []string) error {
	cfg := config.FromEnv()

	fs := flag.NewFlagSet("revq", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	repoPath := fs.String("repo", ".", "repository to operate on")
	limit := fs.Int("limit", cfg.PageSize, "number of commits per history page")
	offset := fs.Int("offset", 0, "number of commits to skip from the oldest")
	follow := fs.Bool("follow", false, "with sync: keep watching the repository for changes")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println(buildinfo.VersionWithTags())
		return nil
	}
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("no command given")
	}

	reader, err := git.Open(*repoPath, git.NewRunner(cfg.GitBin))
	if err != nil {
		return err
	}
	eng := engine.New(reader, cache.NewStore(cfg.DataRoot))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "log":
		return runLog(ctx, eng, *offset, *limit)
	case "sync":
		return runSync(ctx, eng, *follow)
	case "review":
		if len(rest) != 1 {
			return fmt.Errorf("review: expected a commit id")
		}
		return runReview(eng, rest[0])
	case "checkout":
		if len(rest) != 1 {
			return fmt.Errorf("checkout: expected a revision or \"-\"")
		}
		return runCheckout(ctx, eng, rest[0])
	case "update":
		return runUpdate(ctx, eng)
	case "tree":
		if len(rest) != 1 && len(rest) != 2 {
			return fmt.Errorf("tree: expected one or two revisions")
		}
		return runTree(ctx, eng, rest)
	case "diff":
		if len(rest) != 2 {
			return fmt.Errorf("diff: expected a revision and a path")
		}
		return runDiff(ctx, eng, rest[0], rest[1])
	case "show":
		if len(rest) != 2 {
			return fmt.Errorf("show: expected a revision and a path")
		}
		return runShow(ctx, eng, rest[0], rest[1])
	case "refs":
		return runRefs(ctx, reader)
	case "stats":
		if len(rest) != 1 {
			return fmt.Errorf("stats: expected a commit id")
		}
		return runStats(ctx, eng, rest[0])
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLog(ctx context.Context, eng *engine.Engine, offset, limit int) error {
	commits, err := eng.CommitPage(ctx, offset, limit)
	if err != nil {
		return err
	}
	rec, err := eng.Review()
	if err != nil {
		return err
	}
	for _, commit := range commits {
		mark := " "
		if rec.IsReviewed(commit.Hash) {
			mark = "x"
		}
		head := " "
		if rec.Checkout == commit.Hash {
			head = ">"
		}
		fmt.Printf("%s[%s] %s  %s  %s\n",
			head, mark, commit.ShortHash,
			commit.Author.When.Format("2006-01-02 15:04"),
			commit.Subject(),
		)
	}
	return nil
}

func runSync(ctx context.Context, eng *engine.Engine, follow bool) error {
	ids, err := eng.Synchronize(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d commits cached\n", len(ids))
	if !follow {
		return nil
	}
	w, err := watch.Start(eng.RepoPath(), func() {
		ids, err := eng.Synchronize(ctx)
		if err != nil {
			slog.Error("synchronize", slog.Any("error", err))
			return
		}
		fmt.Printf("%d commits cached\n", len(ids))
	})
	if err != nil {
		return err
	}
	defer w.Stop()
	<-ctx.Done()
	return nil
}

func runReview(eng *engine.Engine, id string) error {
	rec, err := eng.ToggleReviewed(id)
	if err != nil {
		return err
	}
	state := "unreviewed"
	if rec.IsReviewed(id) {
		state = "reviewed"
	}
	fmt.Printf("%s: %s\n", id, state)
	return nil
}

func runCheckout(ctx context.Context, eng *engine.Engine, rev string) error {
	if rev == "-" {
		return eng.CheckoutDefault(ctx)
	}
	return eng.Checkout(ctx, rev)
}

func runUpdate(ctx context.Context, eng *engine.Engine) error {
	ids, err := eng.Update(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d commits cached\n", len(ids))
	return nil
}

func runTree(ctx context.Context, eng *engine.Engine, revs []string) error {
	var forest []*difftree.Node
	var err error
	if len(revs) == 2 {
		forest, err = eng.FileTreeBetween(ctx, revs[0], revs[1])
	} else {
		forest, err = eng.FileTree(ctx, revs[0])
	}
	if err != nil {
		return err
	}
	printForest(forest, 0)
	return nil
}

func printForest(nodes []*difftree.Node, depth int) {
	for _, node := range nodes {
		fmt.Printf("%s%s %s\n",
			strings.Repeat("  ", depth),
			statusMarker(node.EffectiveStatus()),
			node.Name,
		)
		printForest(node.Children, depth+1)
	}
}

func statusMarker(status git.ChangeStatus) string {
	switch status {
	case git.StatusAdded:
		return "A"
	case git.StatusDeleted:
		return "D"
	case git.StatusModified:
		return "M"
	case git.StatusRenamed:
		return "R"
	case git.StatusCopied:
		return "C"
	default:
		return " "
	}
}

func runDiff(ctx context.Context, eng *engine.Engine, rev, path string) error {
	lines, err := eng.FileDiffLines(ctx, rev, path)
	if err != nil {
		return err
	}
	for _, line := range lines {
		switch line.Kind {
		case difftree.LineHeader, difftree.LineMetadata:
			fmt.Printf("     %s\n", line.Content)
		case difftree.LineDeleted:
			fmt.Printf("    -%s\n", line.Content)
		case difftree.LineAdded:
			fmt.Printf("%4d+%s\n", line.Number, line.Content)
		default:
			fmt.Printf("%4d %s\n", line.Number, line.Content)
		}
	}
	return nil
}

func runShow(ctx context.Context, eng *engine.Engine, rev, path string) error {
	content, err := eng.FileContent(ctx, rev, path)
	if err != nil {
		return err
	}
	fmt.Print(content)
	return nil
}

func runRefs(ctx context.Context, reader *git.Reader) error {
	refs, err := reader.ListRefs(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		kind := "branch"
		switch ref.Kind {
		case git.RefKindRemoteBranch:
			kind = "remote"
		case git.RefKindTag:
			kind = "tag"
		}
		fmt.Printf("%s  %-6s  %s\n", ref.Hash[:min(12, len(ref.Hash))], kind, ref.Name)
	}
	return nil
}

func runStats(ctx context.Context, eng *engine.Engine, id string) error {
	stats, err := eng.Stats(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("files: %d, added: %d, deleted: %d\n", stats.Files, stats.Added, stats.Deleted)
	fmt.Println("extensions:")
	for ext, count := range stats.Extensions {
		fmt.Printf("  %-12s %d\n", ext, count)
	}
	fmt.Println("languages:")
	for lang, count := range stats.Languages {
		fmt.Printf("  %-12s %d\n", lang, count)
	}
	return nil
}
