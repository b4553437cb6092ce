package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igstories/pkg/auth"
	"igstories/pkg/browser"
	"igstories/pkg/checkpoint"
	"igstories/pkg/config"
	"igstories/pkg/diag"
	"igstories/pkg/extractor"
	"igstories/pkg/fetch"
	"igstories/pkg/instagram"
	"igstories/pkg/logger"
	"igstories/pkg/metadata"
	"igstories/pkg/ratelimit"
	"igstories/pkg/session"
	"igstories/pkg/storage"
	"igstories/pkg/stories"
	"igstories/pkg/ui"
	"igstories/pkg/ui/tui"
)

var (
	// Run command flags
	loginUser      string
	profileName    string
	outputDir      string
	resumeRun      bool
	forceRestart   bool
	headless       bool
	failureCeiling int
	chromePath     string
	useTUI         bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:     "run <account>...",
	Aliases: []string{"stories"},
	Short:   "Save the current stories of one or more accounts",
	Long: `Open the story viewer of each account in turn and save every frame.

Sign in with exactly one of:
  --username   password login (prompted, or IGSTORIES_PASSWORD)
  --profile    restore a session token saved by a previous login or
               by 'igstories auth import'

Accounts may be given as separate arguments or comma separated. Each
account ends with one of: no_content, exited_to_feed, drifted_account or
too_many_failures.`,
	Example: `  # Log in and archive two accounts
  igstories run natgeo nasa --username me

  # Reuse a saved session, headless
  igstories run natgeo,nasa --profile me --headless

  # Continue an interrupted run
  igstories run natgeo nasa --profile me --resume`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStories,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&loginUser, "username", "u", "", "log in with this username (password is prompted)")
	runCmd.Flags().StringVarP(&profileName, "profile", "p", "", "restore the saved session of this account")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "download directory")
	runCmd.Flags().BoolVar(&resumeRun, "resume", false, "skip accounts finished by an earlier run over the same targets")
	runCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard the checkpoint of the same targets")
	runCmd.Flags().BoolVar(&headless, "headless", false, "run Chrome without a window")
	runCmd.Flags().IntVar(&failureCeiling, "failure-ceiling", 0, "consecutive frames without a save before giving up on an account")
	runCmd.Flags().StringVar(&chromePath, "chrome-path", "", "Chrome executable")
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "show a live dashboard")
}

func runStories(cmd *cobra.Command, args []string) error {
	targets, err := instagram.ParseTargets(args)
	if err != nil {
		return err
	}

	flags := map[string]interface{}{
		"output":          outputDir,
		"failure-ceiling": failureCeiling,
		"chrome-path":     chromePath,
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	profiles, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	sess, err := selectSession(loginUser, profileName, profiles, readPassword)
	if err != nil {
		return err
	}

	allTargets := targets
	var cp *checkpoint.Checkpoint
	var cpManager *checkpoint.Manager
	if resumeRun || forceRestart {
		if cpManager, err = checkpoint.NewManager(targets); err != nil {
			return err
		}
		if forceRestart {
			if err := cpManager.BackupCheckpoint(); err != nil {
				return err
			}
			if err := cpManager.Delete(); err != nil {
				return err
			}
		} else if info, err := cpManager.GetCheckpointInfo(); err == nil && info != nil {
			log.InfoWithFields("Found checkpoint", info)
		}
		if cp, err = cpManager.LoadOrCreate(targets); err != nil {
			return err
		}
		if remaining := cp.Remaining(targets); len(remaining) < len(targets) {
			ui.PrintInfo("Resuming", fmt.Sprintf("%d of %d accounts left", len(remaining), len(targets)))
			targets = remaining
		}
		if len(targets) == 0 {
			ui.PrintSuccess("Every account of this run is already done")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the dashboard owns the terminal from here, so logs are drawn in it
	var dash *dashboard
	if useTUI {
		if dash, err = startDashboard(tui.NewTUI(targets, stop), &cfg.Logging); err != nil {
			return err
		}
		defer dash.close(true)
		log = logger.GetLogger()
	}

	chrome, err := browser.Launch(ctx, cfg.Browser, log)
	if err != nil {
		return err
	}
	defer chrome.Close()

	sink := diag.NewFileSink(cfg.Output.DiagnosticDirectory, log)
	store, err := storage.NewManager(cfg.Output.DownloadDirectory, storage.Limits{
		ImageMinBytes: int(cfg.Validation.ImageMinBytes),
		VideoMinBytes: int(cfg.Validation.VideoMinBytes),
	})
	if err != nil {
		return err
	}

	summary := ui.NewSummary()
	observers := stories.Observers{summary}
	if cfg.Output.WriteManifest {
		observers = append(observers, metadata.NewWriter(cfg.Output.DownloadDirectory, log))
	}
	if cp != nil {
		observers = append(observers, checkpoint.NewTracker(cpManager, cp))
	}

	if dash != nil {
		observers = append(observers, dash.tui)
	} else if !quiet {
		observers = append(observers, ui.NewPrinter(os.Stdout, verbose))
	}

	controller := stories.NewController(cfg.Batch, stories.Deps{
		Surface:    chrome,
		Candidates: extractor.New(chrome, extractor.DefaultPolicy()),
		Network:    extractor.NewNetworkLog(chrome),
		Fetcher:    fetch.NewAdapter(chrome),
		Store:      store,
		Sink:       sink,
		Pacer:      newPacer(cfg.Batch),
		Observer:   observers,
		Logger:     log,
	})
	sessions := session.NewManager(chrome, cfg.Session, sink, profiles, log)

	log.InfoWithFields("Run starting", map[string]interface{}{
		"targets": len(targets),
		"run_id":  sink.RunID(),
		"mode":    sessionMode(sess),
	})

	results, err := controller.RunWithSession(ctx, sessions, sess, targets)
	if dash != nil {
		dash.close(err != nil || ctx.Err() != nil)
		log = logger.GetLogger()
	}

	notifier := ui.NewNotifierFromConfig(cfg.Notifications, os.Stdout)
	if err != nil {
		notifier.SendError("Run failed", err.Error())
		var authErr *session.AuthError
		if errors.As(err, &authErr) && authErr.Artifact != "" {
			ui.PrintInfo("Diagnostic", authErr.Artifact)
		}
		return err
	}

	if cp != nil && len(cp.Remaining(allTargets)) == 0 {
		if err := cpManager.Delete(); err != nil {
			log.WithError(err).Warn("Failed to remove finished checkpoint")
		}
	}

	fmt.Println()
	fmt.Println(summary.Render())
	log.InfoWithFields("Run finished", map[string]interface{}{
		"accounts":   len(results),
		"saved":      store.SavedCount(),
		"output_dir": store.OutputDir(),
	})
	notifier.SendSuccess("Run complete", summary.Headline())
	return nil
}

// dashboard runs the TUI in the background and sends the global logger's
// output to its log pane until closed.
type dashboard struct {
	tui  *tui.TUI
	prev logger.Logger
	done chan error
	once sync.Once
}

func startDashboard(t *tui.TUI, cfg *config.LoggingConfig) (*dashboard, error) {
	l, err := logger.NewWithOutput(cfg, t)
	if err != nil {
		return nil, err
	}
	d := &dashboard{tui: t, prev: logger.GetLogger(), done: make(chan error, 1)}
	go func() {
		d.done <- t.Start()
	}()
	logger.SetLogger(l)
	return d, nil
}

// close marks the run finished and waits for the user to quit, or quits at
// once when abort is set. The previous logger is restored afterwards.
func (d *dashboard) close(abort bool) {
	d.once.Do(func() {
		d.tui.Finish()
		if abort {
			d.tui.Stop()
		}
		err := <-d.done
		logger.SetLogger(d.prev)
		if err != nil {
			d.prev.WithError(err).Warn("Dashboard failed")
		}
	})
}

func newPacer(cfg config.BatchConfig) *ratelimit.Pacer {
	return ratelimit.NewPacer(cfg.AccountDelayMin, cfg.AccountDelayMax, ratelimit.New(cfg.PacingMode, cfg.AccountsPerHour))
}

// selectSession turns the sign-in flags into exactly one session mode
func selectSession(username, profile string, profiles *auth.Manager, prompt func(string) (string, error)) (session.Session, error) {
	username = strings.TrimSpace(username)
	profile = strings.TrimSpace(profile)

	switch {
	case username != "" && profile != "":
		return session.Session{}, errors.New("use either --username or --profile, not both")
	case profile != "":
		token, err := profiles.LoadProfileToken(profile)
		if err != nil {
			return session.Session{}, fmt.Errorf("no saved session for %s, run 'igstories auth list': %w", profile, err)
		}
		return session.WithToken(profile, token), nil
	case username != "":
		password := os.Getenv("IGSTORIES_PASSWORD")
		if password == "" {
			var err error
			if password, err = prompt(fmt.Sprintf("Password for %s: ", username)); err != nil {
				return session.Session{}, fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return session.Session{}, errors.New("password is required")
		}
		return session.WithCredentials(username, password), nil
	default:
		return session.Session{}, errors.New("sign in with --username or --profile")
	}
}

func sessionMode(s session.Session) string {
	if s.Restoring() {
		return "restore"
	}
	return "login"
}

// readPassword reads a secret from the terminal without echo
func readPassword(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
