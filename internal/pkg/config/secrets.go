// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManager resolves secret values by key. Keys it does not hold are
// left out of the result.
type SecretsManager interface {
	Secrets(ctx context.Context, keys []string) (map[string]string, error)
}

// Secret keys looked up by ApplySecrets. They match the environment variable
// names so that one secret document can replace a .env file.
const (
	SecretDatabasePassword = "DB_PASSWORD"
	SecretRedisPassword    = "REDIS_PASSWORD"
	SecretAWSAccessKeyID   = "AWS_ACCESS_KEY_ID"
	SecretAWSSecretKey     = "AWS_SECRET_ACCESS_KEY"
	SecretAPIKeys          = "API_KEYS"
	SecretSyncAPIKey       = "SYNC_API_KEY"
)

var (
	_ SecretsManager = (*AWSSecretsManager)(nil)
	_ SecretsManager = (*EnvSecretsManager)(nil)
)

// SecretValueGetter is the part of the Secrets Manager client used here
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager reads one JSON secret document of string values
type AWSSecretsManager struct {
	client     SecretValueGetter
	secretName string
	logger     *slog.Logger
}

// NewAWSSecretsManager builds a client from the default AWS credential chain
func NewAWSSecretsManager(ctx context.Context, region, secretName string, logger *slog.Logger) (*AWSSecretsManager, error) {
	if secretName == "" {
		return nil, errors.New("secret name is required for the aws secrets provider")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewAWSSecretsManagerWithClient(secretsmanager.NewFromConfig(cfg), secretName, logger), nil
}

// NewAWSSecretsManagerWithClient uses an existing client
func NewAWSSecretsManagerWithClient(client SecretValueGetter, secretName string, logger *slog.Logger) *AWSSecretsManager {
	return &AWSSecretsManager{
		client:     client,
		secretName: secretName,
		logger:     logger.With(slog.String("component", "secrets")),
	}
}

// Secrets fetches the current secret version and picks keys from it
func (sm *AWSSecretsManager) Secrets(ctx context.Context, keys []string) (map[string]string, error) {
	out, err := sm.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(sm.secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", sm.secretName, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return nil, fmt.Errorf("secret %s is empty", sm.secretName)
	}

	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse secret %s: %w", sm.secretName, err)
	}

	found := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := doc[key]; ok {
			found[key] = v
		}
	}
	sm.logger.InfoContext(ctx, "secrets resolved",
		slog.String("secret_name", sm.secretName),
		slog.Int("requested", len(keys)),
		slog.Int("found", len(found)))
	return found, nil
}

// EnvSecretsManager reads secrets from environment variables
type EnvSecretsManager struct{}

// NewEnvSecretsManager creates a new environment-based secrets manager
func NewEnvSecretsManager() *EnvSecretsManager {
	return &EnvSecretsManager{}
}

// Secrets returns the non-empty variables among keys
func (EnvSecretsManager) Secrets(_ context.Context, keys []string) (map[string]string, error) {
	found := make(map[string]string, len(keys))
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			found[key] = v
		}
	}
	return found, nil
}

// ApplySecrets overwrites credentials with the values held by sm. Keys the
// manager does not know keep their current value.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretsManager) error {
	secrets, err := sm.Secrets(ctx, []string{
		SecretDatabasePassword,
		SecretRedisPassword,
		SecretAWSAccessKeyID,
		SecretAWSSecretKey,
		SecretAPIKeys,
		SecretSyncAPIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve secrets: %w", err)
	}

	if v, ok := secrets[SecretDatabasePassword]; ok {
		c.Database.Password = v
	}
	if v, ok := secrets[SecretRedisPassword]; ok {
		c.Redis.Password = v
		c.Asynq.RedisPassword = v
	}
	if v, ok := secrets[SecretAWSAccessKeyID]; ok {
		c.AWS.AccessKeyID = v
	}
	if v, ok := secrets[SecretAWSSecretKey]; ok {
		c.AWS.SecretAccessKey = v
	}
	if v, ok := secrets[SecretAPIKeys]; ok {
		c.Security.APIKeys = splitList(v)
	}
	if v, ok := secrets[SecretSyncAPIKey]; ok {
		c.Sync.RemoteAPIKey = v
	}
	return nil
}
