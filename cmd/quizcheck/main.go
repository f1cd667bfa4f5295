// Command quizcheck runs one submit cycle over a saved test page: it collects
// the answers, grades them remotely or locally and writes the graded page.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/noah-isme/lanex-quiz-api/internal/config"
	"github.com/noah-isme/lanex-quiz-api/internal/page"
	"github.com/noah-isme/lanex-quiz-api/internal/presenter"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
	"github.com/noah-isme/lanex-quiz-api/pkg/gradingclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "quizcheck: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	pagePath   string
	keySource  string
	level      string
	endpoint   string
	timeout    time.Duration
	outPath    string
	username   string
	telegramID int64
	threshold  float64
	assumeYes  bool
	offline    bool
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	cfg, err := config.Load()
	if err != nil {
		return options{}, err
	}

	var opts options
	fs := pflag.NewFlagSet("quizcheck", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.pagePath, "page", "", "path to the saved test page (required)")
	fs.StringVar(&opts.keySource, "key", "", "answer key file, or URL of a level key endpoint")
	fs.StringVar(&opts.level, "level", "", "test level (required)")
	fs.StringVar(&opts.endpoint, "endpoint", cfg.GradingURL(), "grading endpoint URL")
	fs.DurationVar(&opts.timeout, "timeout", cfg.GradingTimeout, "remote grading timeout")
	fs.StringVarP(&opts.outPath, "out", "o", "-", "where to write the graded page (- for stdout)")
	fs.StringVar(&opts.username, "username", "", "username sent with the submission")
	fs.Int64Var(&opts.telegramID, "telegram-id", 0, "telegram id sent with the submission")
	fs.Float64Var(&opts.threshold, "threshold", cfg.PassThreshold, "pass threshold in percent, 0 disables")
	fs.BoolVarP(&opts.assumeYes, "yes", "y", false, "submit without asking for confirmation")
	fs.BoolVar(&opts.offline, "offline", false, "grade locally without calling the endpoint")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.pagePath == "" || opts.level == "" {
		fmt.Fprintf(stderr, "Usage of quizcheck:\n%s", fs.FlagUsages())
		return options{}, errors.New("--page and --level are required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).Level(level).With().Timestamp().Logger()

	doc, err := loadPage(opts.pagePath)
	if err != nil {
		return err
	}

	key := quiz.AnswerKey{}
	if opts.keySource != "" {
		key, err = loadKey(ctx, opts.keySource)
		if err != nil {
			return err
		}
	}

	var remote gradingclient.Remote
	if !opts.offline && opts.endpoint != "" {
		client, err := gradingclient.New(gradingclient.Config{
			Endpoint: opts.endpoint,
			Timeout:  opts.timeout,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		remote = client
	}

	identity := presenter.Identity{Username: opts.username}
	if opts.telegramID != 0 {
		id := opts.telegramID
		identity.TelegramID = &id
	}

	var confirmer presenter.Confirmer
	if !opts.assumeYes {
		confirmer = promptConfirmer{in: bufio.NewReader(stdin), out: stderr}
	}

	session := presenter.NewSession(doc, gradingclient.NewFallbackGrader(remote, logger), presenter.Options{
		Level:         opts.level,
		Key:           key,
		Identity:      identity,
		PassThreshold: opts.threshold,
		Confirmer:     confirmer,
		Notifier:      consoleNotifier{out: stderr},
	}, logger)

	state, err := session.Submit(ctx)
	if err != nil && !errors.Is(err, presenter.ErrDeclined) {
		logger.Error().Err(err).Str("state", state.String()).Msg("submission failed")
	}

	if result, source, ok := session.Result(); ok {
		logger.Info().Str("source", string(source)).Str("total", result.Total).Msg("graded")
	} else {
		logger.Info().Str("state", state.String()).Msg("not graded")
	}

	return writePage(doc, opts.outPath, stdout)
}

func loadPage(path string) (*page.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer file.Close()

	doc, err := page.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func loadKey(ctx context.Context, source string) (quiz.AnswerKey, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchKey(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read answer key: %w", err)
	}
	var key quiz.AnswerKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("decode answer key: %w", err)
	}
	return key, nil
}

func fetchKey(ctx context.Context, url string) (quiz.AnswerKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch answer key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch answer key: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Success bool           `json:"success"`
		Data    quiz.AnswerKey `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode answer key: %w", err)
	}
	return envelope.Data, nil
}

func writePage(doc *page.Document, path string, stdout io.Writer) error {
	if path == "-" || path == "" {
		return doc.Render(stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := doc.Render(file); err != nil {
		file.Close()
		return fmt.Errorf("render page: %w", err)
	}
	return file.Close()
}

type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, question string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Notice(message string) {
	fmt.Fprintf(n.out, "notice: %s\n", message)
}

func (n consoleNotifier) Alert(message string) {
	fmt.Fprintf(n.out, "alert: %s\n", message)
}
