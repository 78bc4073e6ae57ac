package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type nutritionSecret struct {
	AppID  string `json:"app_id"`
	AppKey string `json:"app_key"`
}

type twilioSecret struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
}

// LoadSecrets overlays Nutritionix and Twilio credentials from AWS
// Secrets Manager when the corresponding secret names are configured.
// Deployments that pass credentials via plain env vars skip this
// entirely.
func LoadSecrets(ctx context.Context, cfg *Config) error {
	if cfg.NutritionSecretName == "" && cfg.TwilioSecretName == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := secretsmanager.NewFromConfig(awsCfg)

	if cfg.NutritionSecretName != "" {
		var sec nutritionSecret
		if err := getJSONSecret(ctx, client, cfg.NutritionSecretName, &sec); err != nil {
			return fmt.Errorf("failed to load nutrition secret: %w", err)
		}
		cfg.NutritionixAppID = sec.AppID
		cfg.NutritionixAppKey = sec.AppKey
		log.Printf("[Config] Loaded Nutritionix credentials from secret %s", cfg.NutritionSecretName)
	}

	if cfg.TwilioSecretName != "" {
		var sec twilioSecret
		if err := getJSONSecret(ctx, client, cfg.TwilioSecretName, &sec); err != nil {
			return fmt.Errorf("failed to load twilio secret: %w", err)
		}
		cfg.TwilioAccountSID = sec.AccountSID
		cfg.TwilioAuthToken = sec.AuthToken
		cfg.TwilioFrom = sec.FromNumber
		log.Printf("[Config] Loaded Twilio credentials from secret %s", cfg.TwilioSecretName)
	}

	return nil
}

func getJSONSecret(ctx context.Context, client *secretsmanager.Client, name string, out interface{}) error {
	resp, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return err
	}
	if resp.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", name)
	}
	return json.Unmarshal([]byte(*resp.SecretString), out)
}
