package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"scheduleai/internal/assistant"
	"scheduleai/internal/google"
	"scheduleai/internal/icloud"
	"scheduleai/internal/interpreter"
)

const defaultTimezone = "Asia/Kolkata"

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "timemate",
		Usage: "Book meetings and check availability with plain-English commands.",
		Commands: []*cli.Command{
			authCommand(),
			chatCommand(),
			interpretCommand(),
			availabilityCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive scheduling session.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Interpret commands without writing to the calendar."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())

			a, err := buildAssistant(c, logger, c.Bool("dry-run"))
			if err != nil {
				return err
			}

			fmt.Println("TimeMate ready. Ask me to book a meeting or check your schedule. Ctrl-D to exit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				fmt.Println(a.HandleMessage(c.Context, line, time.Now()))
			}
			return scanner.Err()
		},
	}
}

func interpretCommand() *cli.Command {
	return &cli.Command{
		Name:      "interpret",
		Usage:     "Interpret a single command without touching the calendar.",
		ArgsUsage: "<command text>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "now", Usage: "RFC 3339 anchor time for relative phrases (defaults to the current time)."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return fmt.Errorf("no command text given")
			}

			now := time.Now()
			if s := c.String("now"); s != "" {
				var err error
				now, err = time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("invalid --now value %q: %w", s, err)
				}
			}

			loc, err := loadTimezone()
			if err != nil {
				return err
			}

			result := interpreter.New(logger, loc).Interpret(text, now)
			if result.Booking != nil {
				out, err := json.MarshalIndent(result.Booking, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to render booking: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}
			if result.Availability != nil {
				fmt.Println("availability query")
				return nil
			}
			fmt.Println(result.Message)
			return nil
		},
	}
}

func availabilityCommand() *cli.Command {
	return &cli.Command{
		Name:  "availability",
		Usage: "List the upcoming events on the calendar.",
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())

			a, err := buildAssistant(c, logger, false)
			if err != nil {
				return err
			}

			fmt.Println(a.Availability(c.Context))
			return nil
		},
	}
}

// buildAssistant wires the interpreter and the configured calendar backend
// together. CALENDAR_BACKEND selects "google" (default) or "icloud".
func buildAssistant(c *cli.Context, logger *slog.Logger, dryRun bool) (*assistant.Assistant, error) {
	loc, err := loadTimezone()
	if err != nil {
		return nil, err
	}

	var cal assistant.Calendar
	switch backend := strings.ToLower(os.Getenv("CALENDAR_BACKEND")); backend {
	case "", "google":
		account := os.Getenv("GOOGLE_ACCOUNT")
		if account == "" {
			accounts, err := google.GetTokenAccounts()
			if err != nil || len(accounts) == 0 {
				return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
			}
			account = accounts[0]
		}
		calendarID := os.Getenv("GOOGLE_CALENDAR_ID")
		if calendarID == "" {
			calendarID = "primary"
		}
		cal, err = google.NewClient(c.Context, logger,
			os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"),
			account, calendarID, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
	case "icloud":
		cal, err = icloud.NewClient(logger,
			os.Getenv("ICLOUD_USERNAME"), os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
			os.Getenv("ICLOUD_CALENDAR_NAME"), loc)
		if err != nil {
			return nil, fmt.Errorf("failed to create icloud client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown CALENDAR_BACKEND %q", backend)
	}

	return assistant.New(logger, interpreter.New(logger, loc), cal, loc, dryRun), nil
}

func loadTimezone() (*time.Location, error) {
	tzStr := os.Getenv("PRIMARY_TIMEZONE")
	if tzStr == "" {
		tzStr = defaultTimezone
	}
	loc, err := time.LoadLocation(tzStr)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tzStr, err)
	}
	return loc, nil
}

func logLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
