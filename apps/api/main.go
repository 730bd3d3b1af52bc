package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/brainypal/backend/apps/api/echo"
	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/chat"
	"github.com/brainypal/backend/core/content"
	"github.com/brainypal/backend/core/payment"
	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
	aisvc "github.com/brainypal/backend/services/ai"
	emailsvc "github.com/brainypal/backend/services/email"
	logsvc "github.com/brainypal/backend/services/logger"
	paysvc "github.com/brainypal/backend/services/payment"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
	"github.com/brainypal/backend/storage/database"
	sqlxrepos "github.com/brainypal/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	usrRepo := sqlxrepos.NewUserRepository(db)
	chatRepo := sqlxrepos.NewChatRepository(db)
	studyRepo := sqlxrepos.NewStudyRepository(db)
	contentRepo := sqlxrepos.NewContentRepository(db)
	payRepo := sqlxrepos.NewPaymentRepository(db)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	ai := aisvc.NewService(logger)

	var lim ratesvc.Limiter
	if redisLim, err := ratesvc.NewRedisLimiter(); err != nil {
		logger.Warn(fmt.Sprintf("redis unavailable, falling back to in-memory rate limiting: %v", err))
		memLim := ratesvc.NewMemoryLimiter(core.Conf.GenerationRateWindow, core.Conf.GenerationRateLimit)
		defer memLim.Close()
		lim = memLim
	} else {
		defer redisLim.Close()
		lim = redisLim
	}

	usrSvc := user.NewService(usrRepo, mailSvc)
	chatSvc := chat.NewService(chatRepo, ai)
	studySvc := study.NewService(studyRepo, ai)
	contentSvc := content.NewService(contentRepo, studySvc, ai)
	paySvc := payment.NewService(payRepo, paysvc.NewPaystackService(logger), usrSvc, logger)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(&echoapi.Options{
		Address:    core.Conf.Server.Addr,
		Logger:     logger,
		UserSvc:    usrSvc,
		ChatSvc:    chatSvc,
		StudySvc:   studySvc,
		ContentSvc: contentSvc,
		PaymentSvc: paySvc,
		Limiter:    lim,
	})
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, "postgres"), nil
}
