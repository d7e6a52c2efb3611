package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/dpshade/promptdiff/internal/cli"
	"github.com/dpshade/promptdiff/internal/config"
	"github.com/dpshade/promptdiff/internal/embedding"
	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/git"
	"github.com/dpshade/promptdiff/internal/server"
	"github.com/dpshade/promptdiff/internal/service"
	"github.com/dpshade/promptdiff/internal/similarity"
	"github.com/dpshade/promptdiff/internal/store"
	"github.com/dpshade/promptdiff/internal/ui"
)

var version = "0.1.0"

func printHelp() {
	fmt.Printf(`promptdiff - version control and diffing for AI prompts

USAGE:
    promptdiff [OPTIONS] [COMMAND]

OPTIONS:
    --help          Show this help information
    --version       Print version information
    --server        Start the HTTP API server
    --port          Port for the HTTP server (default: from config, else 8080)
    --no-git-sync   Disable automatic git commits of store changes
    --verbose       Verbose error output

COMMANDS:
    (no command)       Start interactive TUI mode
    init               Initialize a prompt store
    add <name>         Record a revision from a file or stdin
    list, ls           List tracked prompts
    log <name>         Show revision history
    show <name>        Print revision content
    diff <name>        Compare revisions
    changelog [name]   Render markdown changelog
    tags <name>        Manage prompt tags
    find <tag>         Find prompts by tag
    search <query>     Fuzzy search prompts
    eval <name> <yaml> Score a revision against a test suite
    import <dir>       Import prompt files as revisions
    render <name>      Fill template placeholders
    copy <name>        Copy revision content to clipboard
    rm <name>          Delete a prompt and its history
    git status         Show git sync state
    help               Show CLI command help

EXAMPLES:
    promptdiff init
    promptdiff add summarizer -f prompt.txt -m "tighten instructions"
    promptdiff diff summarizer v1 v3
    promptdiff changelog summarizer --last 5
    promptdiff eval summarizer suite.yaml --all
    promptdiff --server --port 9000

STORAGE:
    Default directory: nearest .promptdiff, walking up from the working directory
    Override with: PROMPTDIFF_DIR=<path>
`)
}

// buildScorer maps the configured scorer name to an implementation. The
// embedding scorer needs OPENAI_API_KEY; without it the Jaccard fallback
// keeps diffs working offline.
func buildScorer(cfg *config.Config) service.Scorer {
	switch cfg.ScorerName() {
	case "none":
		return nil
	case "embedding":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			fmt.Fprintln(os.Stderr, "Warning: scorer 'embedding' configured but OPENAI_API_KEY is not set; falling back to jaccard")
			return similarity.NewJaccard()
		}
		provider := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey: apiKey,
			Model:  cfg.EmbeddingModel,
		})
		return similarity.NewEmbedding(provider)
	default:
		return similarity.NewJaccard()
	}
}

func main() {
	var showVersion bool
	var showHelp bool
	var runServer bool
	var port int
	var noGitSync bool
	var verbose bool

	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&runServer, "server", false, "Start the HTTP API server")
	flag.IntVar(&port, "port", 0, "Port for the HTTP server")
	flag.BoolVar(&noGitSync, "no-git-sync", false, "Disable automatic git commits")
	flag.BoolVar(&verbose, "verbose", false, "Verbose error output")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("promptdiff version %s\n", version)
		os.Exit(0)
	}

	// .env is optional; it typically carries OPENAI_API_KEY.
	_ = godotenv.Load()

	errorHandler := errors.NewCLIErrorHandler(verbose)

	storeDir, err := config.ResolveStoreDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
		os.Exit(1)
	}
	cfg, err := config.Load(storeDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
		os.Exit(1)
	}

	opts := []service.Option{}
	if scorer := buildScorer(cfg); scorer != nil {
		opts = append(opts, service.WithScorer(scorer))
	}
	if cfg.GitSyncEnabled() && !noGitSync {
		opts = append(opts, service.WithGitSync(git.NewSync(storeDir)))
	}
	svc := service.New(store.NewFilesystem(storeDir), opts...)

	if runServer {
		if port == 0 {
			port = cfg.Port()
		}
		if err := server.New(svc, port).Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	if len(args) > 0 {
		cliHandler := cli.NewCLI(svc)
		if err := cliHandler.ExecuteCommand(args); err != nil {
			fmt.Fprintln(os.Stderr, errorHandler.FormatError(err))
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(ui.NewModel(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
