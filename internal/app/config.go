package app

import (
	"strings"
	"time"

	"github.com/quillsign/quillsign-backend/internal/platform/envutil"
)

type Config struct {
	ServiceName          string
	Environment          string
	Version              string
	JWTSecretKey         string
	InvitationTTL        time.Duration
	IdempotencyTTL       time.Duration
	SigningBaseURL       string
	AllowedOrigins       []string
	NotificationsEnabled bool
	AuditEnabled         bool
	ExpirySweepInterval  time.Duration
	ExpirySweepBatch     int
}

func LoadConfig() Config {
	invitationTTLHours := envutil.Int("INVITATION_TTL_HOURS", 168)
	idempotencyTTLHours := envutil.Int("IDEMPOTENCY_TTL_HOURS", 24)
	sweepSeconds := envutil.Int("EXPIRY_SWEEP_INTERVAL_SECONDS", 60)
	origins := []string{}
	for _, o := range strings.Split(envutil.String("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		ServiceName:          envutil.String("SERVICE_NAME", "quillsign-backend"),
		Environment:          envutil.String("ENVIRONMENT", "development"),
		Version:              envutil.String("SERVICE_VERSION", "dev"),
		JWTSecretKey:         envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		InvitationTTL:        time.Duration(invitationTTLHours) * time.Hour,
		IdempotencyTTL:       time.Duration(idempotencyTTLHours) * time.Hour,
		SigningBaseURL:       envutil.String("SIGNING_BASE_URL", "http://localhost:3000"),
		AllowedOrigins:       origins,
		NotificationsEnabled: envutil.Bool("NOTIFICATIONS_ENABLED", true),
		AuditEnabled:         envutil.Bool("AUDIT_ENABLED", true),
		ExpirySweepInterval:  time.Duration(sweepSeconds) * time.Second,
		ExpirySweepBatch:     envutil.Int("EXPIRY_SWEEP_BATCH", 100),
	}
}
