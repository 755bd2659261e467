// check-popular is the scheduled job behind the popularity emails:
// it scans for profiles whose incoming like count crossed the
// threshold and emails the admin once per profile. Intended to run
// daily from cron; overlapping runs are skipped via an advisory lock.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/amaralkaff/tinder-clone/internal/notify"
	"github.com/amaralkaff/tinder-clone/internal/popular"
	"github.com/amaralkaff/tinder-clone/internal/store"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn       = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN [env: DATABASE_URL]")
		threshold = flag.Int("threshold", popular.DefaultThreshold, "Like count at which a profile counts as popular")
		timeout   = flag.Duration("timeout", 5*time.Minute, "Overall run timeout")
		notifyTmo = flag.Duration("notify-timeout", 30*time.Second, "Timeout per notification delivery")
		dryRun    = flag.Bool("dry-run", false, "Log notifications instead of sending email")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("Missing DSN: provide --dsn or set DATABASE_URL")
	}
	if *threshold < 1 {
		log.Fatal("--threshold must be at least 1")
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		log.Fatal("DB open error:", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Cannot reach the database:", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if !*dryRun {
		if cfg, ok := emailConfigFromEnv(); ok {
			notifier = notify.NewEmailNotifier(cfg)
		} else {
			log.Println("Warning: SMTP_HOST not set, logging notifications instead of emailing")
		}
	}

	sweeper := popular.NewSweeper(store.NewPostgres(db), notifier, *notifyTmo)

	log.Printf("Checking for popular profiles (threshold: %d likes)...", *threshold)
	summary, err := sweeper.Sweep(ctx, *threshold)
	if err != nil {
		if errors.Is(err, popular.ErrSweepInProgress) {
			log.Println("Another sweep is already running, skipping this one")
			return
		}
		log.Fatal("Sweep error:", err)
	}

	if summary.Found == 0 {
		log.Println("No new popular profiles found.")
		return
	}
	log.Printf("Found %d popular profile(s)!", summary.Found)
	for _, o := range summary.Outcomes {
		if o.Sent {
			log.Printf("Notification sent for %s (%d likes)", o.Name, o.LikeCount)
		} else {
			log.Printf("Failed to notify for %s (%d likes): %s", o.Name, o.LikeCount, o.Error)
		}
	}
	log.Printf("Process completed: %d sent, %d failed", summary.Sent, summary.Failed)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func emailConfigFromEnv() (notify.EmailConfig, bool) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return notify.EmailConfig{}, false
	}
	port := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			port = p
		}
	}
	admin := os.Getenv("ADMIN_EMAIL")
	if admin == "" {
		admin = "admin@example.com"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@example.com"
	}
	return notify.EmailConfig{
		Host:       host,
		Port:       port,
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		UseTLS:     os.Getenv("SMTP_TLS") != "false",
		From:       from,
		FromName:   os.Getenv("SMTP_FROM_NAME"),
		AdminEmail: admin,
	}, true
}
