package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/storage"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LDConnectionTimeout = 5 * time.Second
	defaultFromEmail    = "no-reply@easyrent.my"
)

type Config struct {
	OrganizationName    string
	AppName             string
	Env                 string
	AppPort             string
	AppUrl              string
	StoreDriver         string
	DBUrl               string
	StripeSecretKey     string
	StripeWebhookSecret string
	SendgridAPIKey      string
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFromPhone     string
	S3                  storage.S3Config
	RSAPublicKey        *rsa.PublicKey
	UniqueRunNumber     string

	LDFlag_UseShortBillingPeriod bool
	LDFlag_SendgridFromEmail     string
	LDFlag_SendgridSandboxMode   bool
	LDFlag_CORSHighSecurity      bool
	LDFlag_SeedDbWithTestData    bool
}

// Set with -ldflags "-X .../internal/config.AppName=..." at build time.
var (
	AppName             = "rental-service"
	UniqueRunNumber     = "local"
	LDServerContextKey  = "rental-service"
	LDServerContextKind = "service"
)

// flagSource is the subset of the LaunchDarkly client LoadConfig reads.
type flagSource interface {
	BoolVariation(key string, ctx ldcontext.Context, defaultVal bool) (bool, error)
	StringVariation(key string, ctx ldcontext.Context, defaultVal string) (string, error)
}

type featureFlags struct {
	useShortBillingPeriod bool
	sendgridFromEmail     string
	sendgridSandboxMode   bool
	corsHighSecurity      bool
	seedDbWithTestData    bool
}

func defaultFlags() featureFlags {
	return featureFlags{sendgridFromEmail: defaultFromEmail}
}

func readFlags(src flagSource, ctx ldcontext.Context) (featureFlags, error) {
	f := defaultFlags()
	var err error
	if f.useShortBillingPeriod, err = src.BoolVariation("use_short_billing_period", ctx, false); err != nil {
		return f, err
	}
	if f.sendgridFromEmail, err = src.StringVariation("sendgrid_from_email", ctx, ""); err != nil {
		return f, err
	}
	if f.sendgridFromEmail == "" {
		f.sendgridFromEmail = defaultFromEmail // Fallback
	}
	if f.sendgridSandboxMode, err = src.BoolVariation("sendgrid_sandbox_mode", ctx, false); err != nil {
		return f, err
	}
	if f.corsHighSecurity, err = src.BoolVariation("cors_high_security", ctx, false); err != nil {
		return f, err
	}
	if f.seedDbWithTestData, err = src.BoolVariation("seed_db_with_test_data", ctx, false); err != nil {
		return f, err
	}
	return f, nil
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

// ParseRSAPublicKeyBase64 decodes a base64 PEM public key.
func ParseRSAPublicKeyBase64(b64 string) (*rsa.PublicKey, error) {
	pem, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(pem)
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Logger.WithError(err).Warn("Failed to load .env file")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	env := requireEnv("ENV")
	appPort := requireEnv("APP_PORT")
	appUrl := requireEnv("APP_URL_FROM_ANYWHERE")

	driver := strings.ToLower(os.Getenv("STORE_DRIVER"))
	if driver == "" {
		driver = StoreDriverPostgres
	}
	var dbURL string
	switch driver {
	case StoreDriverPostgres:
		dbURL = requireEnv("DB_URL")
	case StoreDriverMemory:
		utils.Logger.Warn("STORE_DRIVER=memory, state will not survive a restart")
	default:
		utils.Logger.Fatalf("Unknown STORE_DRIVER %q", driver)
	}

	var pubKey *rsa.PublicKey
	if pubB64 := os.Getenv("RSA_PUBLIC_KEY_BASE64"); pubB64 != "" {
		var err error
		pubKey, err = ParseRSAPublicKeyBase64(pubB64)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
		}
	} else {
		utils.Logger.Warn("RSA_PUBLIC_KEY_BASE64 not set, authenticated routes will reject every request")
	}

	stripeSecretKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeSecretKey == "" {
		utils.Logger.Warn("STRIPE_SECRET_KEY not set, payment verification will fail")
	}

	flags := defaultFlags()
	if ldSDKKey := os.Getenv("LD_SDK_KEY"); ldSDKKey != "" {
		ldClient, err := ld.MakeClient(ldSDKKey, LDConnectionTimeout)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
		}
		defer ldClient.Close()

		ctx := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)
		flags, err = readFlags(ldClient, ctx)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Error retrieving feature flags")
		}
	} else {
		utils.Logger.Info("LD_SDK_KEY not set, using default feature flags")
	}
	utils.Logger.Debugf("use_short_billing_period flag: %t", flags.useShortBillingPeriod)
	utils.Logger.Debugf("seed_db_with_test_data flag: %t", flags.seedDbWithTestData)
	utils.Logger.Debugf("cors_high_security flag: %t", flags.corsHighSecurity)

	return &Config{
		OrganizationName:    constants.LandlordName,
		AppName:             AppName,
		Env:                 env,
		AppPort:             appPort,
		AppUrl:              appUrl,
		StoreDriver:         driver,
		DBUrl:               dbURL,
		StripeSecretKey:     stripeSecretKey,
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SendgridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:     os.Getenv("TWILIO_FROM_PHONE"),
		S3: storage.S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          os.Getenv("S3_REGION"),
			Bucket:          os.Getenv("S3_BUCKET"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		RSAPublicKey:    pubKey,
		UniqueRunNumber: UniqueRunNumber,

		LDFlag_UseShortBillingPeriod: flags.useShortBillingPeriod,
		LDFlag_SendgridFromEmail:     flags.sendgridFromEmail,
		LDFlag_SendgridSandboxMode:   flags.sendgridSandboxMode,
		LDFlag_CORSHighSecurity:      flags.corsHighSecurity,
		LDFlag_SeedDbWithTestData:    flags.seedDbWithTestData,
	}
}

func (c *Config) Close() {}
