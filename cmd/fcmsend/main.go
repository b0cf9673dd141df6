package main

import (
	"context"
	"log"
	"os"

	firebase "github.com/ROR44/firebase-admin-go"
	"github.com/ROR44/firebase-admin-go/pkg/messaging"
	"github.com/jessevdk/go-flags"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// fcmsend delivers one notification through FCM. Mainly useful for
// verifying a service-account setup before wiring the SDK into an
// application.
var opts struct {
	ConfigLocation string `short:"c" long:"config" description:"Config file location" required:"true"`
	Token          string `short:"t" long:"token" description:"Target device registration token" required:"true"`
	Title          string `long:"title" description:"Notification title"`
	Body           string `long:"body" description:"Notification body"`
	DryRun         bool   `long:"dry-run" description:"Validate the message without delivering it"`
}

func main() {

	if _, err := flags.ParseArgs(&opts, os.Args); err != nil {
		log.Fatal("failed to parse arguments:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to create logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	v := viper.New()
	v.SetConfigFile(opts.ConfigLocation)
	if err := v.ReadInConfig(); err != nil {
		log.Fatal("failed to parse config:", err)
	}

	cfg, err := firebase.NewConfig(v)
	if err != nil {
		log.Fatal("failed to parse config:", err)
	}

	app, err := firebase.NewApp(cfg, firebase.WithLogger(logger))
	if err != nil {
		log.Fatal("failed to create app:", err)
	}

	client, err := app.Messaging()
	if err != nil {
		log.Fatal("failed to create messaging client:", err)
	}

	message := &messaging.Message{
		Token: opts.Token,
		Notification: &messaging.Notification{
			Title: opts.Title,
			Body:  opts.Body,
		},
	}

	send := client.Send
	if opts.DryRun {
		send = client.SendDryRun
	}

	id, err := send(context.Background(), message)
	if err != nil {
		logger.Fatal("send message", zap.Error(err))
	}

	logger.Info("message sent",
		zap.String("id", id),
		zap.Bool("dry run", opts.DryRun))
}
