package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/emisoft/buzon/apps/api/echo"
	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/otp"
	"github.com/emisoft/buzon/core/staff"
	"github.com/emisoft/buzon/core/ticket"
	emailsvc "github.com/emisoft/buzon/services/email"
	logsvc "github.com/emisoft/buzon/services/logger"
	"github.com/emisoft/buzon/storage/bucket"
	"github.com/emisoft/buzon/storage/database"
	"github.com/emisoft/buzon/storage/database/sqlxrepos"
	"github.com/emisoft/buzon/storage/session"
)

func main() {
	std := log.New(os.Stdout, "BUZON : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	if err := run(std, logger); err != nil {
		logger.Fatal("server error", err)
	}
}

func run(std *log.Logger, logger core.Logger) error {
	ctx := context.Background()

	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db); err != nil {
		return err
	}

	// email service
	var mailSvc core.EmailService
	switch {
	case core.Conf.Mail.SendgridApiKey != "":
		mailSvc = emailsvc.NewSendgridService(logger)
	case core.Conf.Mail.Host != "":
		mailSvc = emailsvc.NewSMTPService(logger)
	default:
		mailSvc = emailsvc.NewConsoleService(logger)
	}

	// session store
	var sessions otp.SessionStore
	if core.Conf.Redis.Addr != "" {
		client, err := session.NewRedisClient(core.Conf)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sessions = session.NewRedisStore(client, core.Conf)
	} else {
		sessions = session.NewInmemStore()
	}

	// evidence store
	var evidence ticket.EvidenceStore
	if core.Conf.Bucket.Endpoint != "" {
		if evidence, err = bucket.NewEvidenceStore(ctx, core.Conf); err != nil {
			return err
		}
	} else {
		evidence = bucket.NewInmemStore()
	}

	// classifier
	classifier := ticket.NewClassifier(logger)
	if path := core.Conf.KeywordsFile; path != "" {
		if err = classifier.WatchFile(path); err != nil {
			return err
		}
	}

	// services
	ticketSvc := ticket.NewService(sqlxrepos.NewTicketRepository(db), mailSvc, classifier, logger)
	staffSvc := staff.NewService(sqlxrepos.NewStaffRepository(db))
	gate := otp.NewGate(sessions, mailSvc, logger)

	server := echoapi.NewServer(&echoapi.Options{
		Address:   core.Conf.Server.Address(),
		TicketSvc: ticketSvc,
		StaffSvc:  staffSvc,
		Gate:      gate,
		Sessions:  sessions,
		Evidence:  evidence,
		Logger:    logger,
	})

	go server.Start()
	std.Printf("server listening on %s", core.Conf.Server.Address())

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	std.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, core.Conf.Server.ShutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}
