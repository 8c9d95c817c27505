package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/config"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/mailer"
	mailtpl "github.com/exotic-fruits/auth-service/pkg/mailer/templates"
)

const prefetch = 16

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer q.Close()

	msgs, err := q.Consume(prefetch)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	worker := &mailer.Worker{
		Transport: mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender),
		Geo:       mailtpl.IPAPIResolver{},
		Logger:    logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, worker, logger, msg)
		}
	}()

	logger.Infof("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// handle acks delivered mail, drops undeliverable jobs and requeues the rest.
func handle(ctx context.Context, w *mailer.Worker, logger *logrus.Logger, msg amqp.Delivery) {
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := w.Process(c, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, mailer.ErrBadJob):
		logger.WithError(err).Warn("dropping email job")
		_ = msg.Nack(false, false)
	default:
		logger.WithError(err).Warn("email send failed; requeueing")
		_ = msg.Nack(false, true)
	}
}
