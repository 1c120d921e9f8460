package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrattend/internal/config"
	"qrattend/internal/ledger"
	"qrattend/internal/metrics"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
	"qrattend/internal/store"
)

// Worker consumes notification jobs, sends confirmation emails, and
// marks the notified flags. One attempt per job; a failed send only
// leaves the flag unset so the next identical scan can re-trigger it.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	caps, err := store.DetectCapabilities(ctx, db.Client)
	if err != nil {
		log.Printf("warning: capability probe failed, assuming full schema: %v", err)
		caps.NotifiedFlags = true
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "qrattend:notifications")
	}

	var mailer notify.Mailer
	if cfg.SendgridKey != "" {
		mailer = notify.NewSendgridMailer(cfg.SendgridKey, cfg.MailFromName, cfg.MailFromAddr)
		log.Println("SendGrid configured, from:", cfg.MailFromAddr)
	} else {
		mailer = notify.ConsoleMailer{}
		log.Println("SENDGRID_API_KEY not set, logging mail to console")
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.MailTimeout)
	led := ledger.New(ledger.NewPostgresStore(db.Client, caps))

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9091", mux); err != nil {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for jobs...")
	for msg := range messages {
		if msg.Type != "confirmation" {
			continue
		}

		var job notify.Job
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			log.Printf("malformed job dropped: %v", err)
			continue
		}

		outcome := dispatcher.Dispatch(ctx, job)
		if outcome != notify.Sent {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()

		// A failed flag update is accepted: better a duplicate email on
		// the next identical scan than a silently dropped confirmation.
		markCtx, markCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := led.MarkNotified(markCtx, job.RecordID, job.Kind); err != nil {
			log.Printf("mark notified failed for record %s: %v", job.RecordID, err)
		}
		markCancel()
	}

	log.Println("worker stopped")
}
