// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/cms"
	"github.com/dalemusser/vlsiclub/internal/app/content"
	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/app/store/accounts"
	"github.com/dalemusser/vlsiclub/internal/app/store/authtokens"
	"github.com/dalemusser/vlsiclub/internal/app/store/identitysessions"
	"github.com/dalemusser/vlsiclub/internal/app/store/oauthstate"
	"github.com/dalemusser/vlsiclub/internal/app/store/profiles"
	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/app/system/mailer"
	"github.com/dalemusser/vlsiclub/internal/app/system/ratelimit"
	"github.com/dalemusser/vlsiclub/internal/app/system/tasks"
	"github.com/dalemusser/vlsiclub/internal/app/system/timeouts"
	"github.com/dalemusser/vlsiclub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/jobs"
	"go.uber.org/zap"
)

// Services are the long-lived objects built once at startup and shared by
// every handler.
type Services struct {
	CMS        *cms.Client
	Content    *content.Aggregator
	Identity   *identity.Local
	Controller *session.Controller
	Sessions   *auth.SessionManager
	Profiles   profiles.Store
	OAuthState *oauthstate.Store
	Verifier   *identity.GoogleVerifier // nil without a Google client id

	MailConfigured bool
	LoginLimiter   *ratelimit.AttemptLimiter
	ResetLimiter   *ratelimit.AttemptLimiter

	expiry    *workers.SessionExpiry
	scheduler *jobs.Scheduler
	stopOnce  sync.Once
}

// schedulerStopTimeout bounds how long stop waits for in-flight jobs.
const schedulerStopTimeout = 10 * time.Second

// Startup builds the services into deps.Services, subscribes the session
// controller to the identity provider, and starts the background workers.
// ctx is WAFFLE's signal context and lives as long as the server.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	svc := deps.Services
	if svc == nil {
		return errors.New("startup: DBDeps.Services is nil")
	}
	applyTimeouts(cfg)

	cmsClient, err := cms.New(cms.Config{
		ProjectID:  cfg.CMS.ProjectID,
		Dataset:    cfg.CMS.Dataset,
		Token:      cfg.CMS.Token,
		APIVersion: cfg.CMS.APIVersion,
		UseCDN:     cfg.CMS.UseCDN,
		BaseURL:    cfg.CMS.BaseURL,
	}, logger.Named("cms"))
	if err != nil {
		return fmt.Errorf("cms client: %w", err)
	}

	mail, err := mailer.New(mailer.Config{
		Backend:     cfg.Mail.Backend,
		From:        cfg.Mail.From,
		FromName:    cfg.Mail.FromName,
		SendGridKey: cfg.Mail.SendGridKey,
		SMTPHost:    cfg.Mail.SMTPHost,
		SMTPPort:    cfg.Mail.SMTPPort,
		SMTPUser:    cfg.Mail.SMTPUser,
		SMTPPass:    cfg.Mail.SMTPPass,
	}, logger)
	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		logger.Warn("email is not configured; verification and reset emails are disabled")
	case err != nil:
		return fmt.Errorf("mailer: %w", err)
	}

	var profileStore profiles.Store
	if deps.Firestore != nil {
		profileStore = profiles.NewFirestore(deps.Firestore, cfg.Profiles.FirestoreCollection)
	} else {
		profileStore = profiles.NewMongo(deps.MongoDatabase)
	}

	tokens := authtokens.New(deps.MongoDatabase)
	local := identity.NewLocal(
		accounts.New(deps.MongoDatabase),
		identitysessions.New(deps.MongoDatabase),
		tokens,
		mail,
		identity.LocalConfig{
			Domain:          cfg.Auth.Domain,
			RequireVerified: cfg.Auth.RequireVerified,
			SessionTTL:      cfg.Auth.SessionTTL,
			VerifyTTL:       cfg.Auth.VerifyTTL,
			ResetTTL:        cfg.Auth.ResetTTL,
			BaseURL:         cfg.BaseURL,
			SiteName:        cfg.SiteName,
		},
		logger.Named("identity"),
	)

	sm, err := auth.NewSessionManager(cfg.Session.Key, cfg.Session.Name, cfg.Session.Domain, cfg.Session.MaxAge, coreCfg.Env == "prod", logger)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	ctrl := session.New(local, profileStore, logger.Named("session"))
	ctrl.Start(ctx)

	svc.CMS = cmsClient
	svc.Content = content.NewAggregator(cmsClient, timeouts.Query(), logger.Named("content"))
	svc.Identity = local
	svc.Controller = ctrl
	svc.Sessions = sm
	svc.Profiles = profileStore
	svc.OAuthState = oauthstate.New(deps.MongoDatabase)
	svc.MailConfigured = mail != nil
	svc.LoginLimiter = ratelimit.NewAttemptLimiterWithConfig(cfg.Auth.LoginIPLimit, cfg.Auth.LoginWindow, cfg.Auth.LoginEmailLimit, cfg.Auth.LoginWindow)
	svc.ResetLimiter = ratelimit.NewAttemptLimiter()
	if cfg.Google.ClientID != "" {
		svc.Verifier = identity.NewGoogleVerifier(cfg.Google.ClientID)
	}

	svc.expiry = workers.NewSessionExpiry(local, logger.Named("workers"), cfg.Workers.SessionExpiryInterval)
	svc.expiry.Start()

	scheduler, err := tasks.NewScheduler(logger.Named("tasks"),
		tasks.AuthTokenPurgeJob(tokens, logger),
		tasks.OAuthStateCleanupJob(svc.OAuthState, logger),
	)
	if err != nil {
		svc.stop()
		return fmt.Errorf("task scheduler: %w", err)
	}
	svc.scheduler = scheduler
	svc.scheduler.Start()

	// WAFFLE skips the Shutdown hook once ctx is cancelled, so workers
	// also stop with ctx.
	context.AfterFunc(ctx, svc.stop)
	return nil
}

// stop halts workers and releases in-process resources. Safe on a partially
// built Services and safe to call more than once.
func (s *Services) stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(s.stopAll)
}

func (s *Services) stopAll() {
	if s.scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), schedulerStopTimeout)
		_ = s.scheduler.Stop(ctx)
		cancel()
	}
	if s.expiry != nil {
		s.expiry.Stop()
	}
	if s.Controller != nil {
		s.Controller.Close()
	}
	if s.LoginLimiter != nil {
		s.LoginLimiter.Stop()
	}
	if s.ResetLimiter != nil {
		s.ResetLimiter.Stop()
	}
}
