package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Значения по умолчанию из JSON-ключа сервис-аккаунта Google.
const (
	defaultAccountType    = "service_account"
	defaultAuthURI        = "https://accounts.google.com/o/oauth2/auth"
	defaultTokenURI       = "https://oauth2.googleapis.com/token"
	defaultCertURL        = "https://www.googleapis.com/oauth2/v1/certs"
	defaultUniverseDomain = "googleapis.com"
)

// ServiceAccount - материал ключа сервис-аккаунта Firebase.
type ServiceAccount struct {
	Type                    string `json:"type" yaml:"type"`
	ProjectID               string `json:"project_id" yaml:"project_id"`
	PrivateKeyID            string `json:"private_key_id" yaml:"private_key_id"`
	PrivateKey              string `json:"private_key" yaml:"private_key"`
	ClientEmail             string `json:"client_email" yaml:"client_email"`
	ClientID                string `json:"client_id" yaml:"client_id"`
	AuthURI                 string `json:"auth_uri" yaml:"auth_uri"`
	TokenURI                string `json:"token_uri" yaml:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url" yaml:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url" yaml:"client_x509_cert_url"`
	UniverseDomain          string `json:"universe_domain" yaml:"universe_domain"`
}

// WebSDKConfig - конфигурация Firebase Web SDK для фронтенда.
type WebSDKConfig struct {
	APIKey            string `json:"apiKey" yaml:"api_key"`
	AuthDomain        string `json:"authDomain" yaml:"auth_domain"`
	ProjectID         string `json:"projectId" yaml:"project_id"`
	StorageBucket     string `json:"storageBucket" yaml:"storage_bucket"`
	MessagingSenderID string `json:"messagingSenderId" yaml:"messaging_sender_id"`
	AppID             string `json:"appId" yaml:"app_id"`
	MeasurementID     string `json:"measurementId" yaml:"measurement_id"`
}

// ProviderCredentials - учетные данные провайдера. Пустой объект означает "не настроено".
type ProviderCredentials struct {
	ServiceAccount ServiceAccount
	Web            WebSDKConfig
	VapidKey       string
	Source         string // Имя источника, из которого загружены данные
}

// ProjectID возвращает идентификатор проекта из ключа сервис-аккаунта или web-конфига.
func (c ProviderCredentials) ProjectID() string {
	if c.ServiceAccount.ProjectID != "" {
		return c.ServiceAccount.ProjectID
	}
	return c.Web.ProjectID
}

// Complete сообщает, достаточно ли данных для инициализации клиента провайдера.
func (c ProviderCredentials) Complete() bool {
	sa := c.ServiceAccount
	return sa.ProjectID != "" && sa.PrivateKey != "" && sa.ClientEmail != ""
}

// ServiceAccountJSON формирует JSON-документ для option.WithCredentialsJSON.
func (c ProviderCredentials) ServiceAccountJSON() ([]byte, error) {
	if !c.Complete() {
		return nil, errors.New("firebase service account credentials are incomplete")
	}
	data, err := json.Marshal(c.ServiceAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal service account: %w", err)
	}
	return data, nil
}

// WebConfig возвращает конфигурацию Web SDK и VAPID-ключ. ok=false, если не задан projectId или VAPID.
func (c ProviderCredentials) WebConfig() (cfg WebSDKConfig, vapidKey string, ok bool) {
	return c.Web, c.VapidKey, c.Web.ProjectID != "" && c.VapidKey != ""
}

// CredentialSources - источники учетных данных в порядке приоритета.
type CredentialSources struct {
	SiteConfigPath string // YAML, секция firebase
	EnvFilePath    string // dotenv-файл (.firebase.env)
	UseProcessEnv  bool   // переменные окружения FIREBASE_*
}

type credentialLoader struct {
	name string
	load func() (ProviderCredentials, error)
}

// LoadCredentials перебирает источники по приоритету. Сервис-аккаунт берется из первого
// источника, где задан service account project_id; web-конфиг и VAPID-ключ - из первого
// источника, где они есть. Никогда не возвращает ошибку: при отсутствии данных отдает пустой объект.
func LoadCredentials(sources CredentialSources, logger *zap.Logger) ProviderCredentials {
	log := logger.Named("credentials")

	loaders := make([]credentialLoader, 0, 3)
	if sources.SiteConfigPath != "" {
		loaders = append(loaders, credentialLoader{name: "site_config", load: func() (ProviderCredentials, error) {
			return loadFromSiteConfig(sources.SiteConfigPath)
		}})
	}
	if sources.EnvFilePath != "" {
		loaders = append(loaders, credentialLoader{name: "env_file", load: func() (ProviderCredentials, error) {
			return loadFromEnvFile(sources.EnvFilePath)
		}})
	}
	if sources.UseProcessEnv {
		loaders = append(loaders, credentialLoader{name: "process_env", load: loadFromProcessEnv})
	}

	var merged ProviderCredentials
	webSource := ""
	for _, l := range loaders {
		creds, err := l.load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn("Не удалось прочитать источник учетных данных Firebase", zap.String("source", l.name), zap.Error(err))
			} else {
				log.Debug("Источник учетных данных Firebase отсутствует", zap.String("source", l.name))
			}
			continue
		}
		if merged.Web.ProjectID == "" && creds.Web.ProjectID != "" {
			merged.Web = creds.Web
			webSource = l.name
		}
		if merged.VapidKey == "" {
			merged.VapidKey = creds.VapidKey
		}
		if merged.ServiceAccount.ProjectID == "" {
			if creds.ServiceAccount.ProjectID == "" {
				log.Debug("Источник не содержит service account project_id", zap.String("source", l.name))
			} else {
				merged.ServiceAccount = creds.ServiceAccount
				merged.Source = l.name
			}
		}
		if merged.ServiceAccount.ProjectID != "" && merged.Web.ProjectID != "" && merged.VapidKey != "" {
			break
		}
	}

	if merged.ServiceAccount.ProjectID == "" {
		if merged.Web.ProjectID == "" && merged.VapidKey == "" {
			log.Warn("Учетные данные Firebase не найдены ни в одном источнике, push-уведомления отключены")
			return ProviderCredentials{}
		}
		log.Warn("Сервис-аккаунт Firebase не найден, доступна только web-конфигурация",
			zap.String("web_source", webSource))
		return merged
	}

	merged.normalize()
	log.Info("Учетные данные Firebase загружены",
		zap.String("source", merged.Source),
		zap.String("web_source", webSource),
		zap.String("project_id", merged.ProjectID()),
		zap.Bool("complete", merged.Complete()))
	return merged
}

func (c *ProviderCredentials) normalize() {
	sa := &c.ServiceAccount
	sa.PrivateKey = strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")
	if sa.Type == "" {
		sa.Type = defaultAccountType
	}
	if sa.AuthURI == "" {
		sa.AuthURI = defaultAuthURI
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	if sa.AuthProviderX509CertURL == "" {
		sa.AuthProviderX509CertURL = defaultCertURL
	}
	if sa.UniverseDomain == "" {
		sa.UniverseDomain = defaultUniverseDomain
	}
}

// --- Site config (YAML) ---

type siteConfigFile struct {
	Firebase struct {
		ServiceAccount ServiceAccount `yaml:"service_account"`
		Web            WebSDKConfig   `yaml:"web"`
		VapidKey       string         `yaml:"vapid_key"`
	} `yaml:"firebase"`
}

func loadFromSiteConfig(path string) (ProviderCredentials, error) {
	if _, err := os.Stat(path); err != nil {
		return ProviderCredentials{}, err
	}
	var file siteConfigFile
	if err := cleanenv.ReadConfig(path, &file); err != nil {
		return ProviderCredentials{}, fmt.Errorf("failed to parse site config '%s': %w", path, err)
	}
	return ProviderCredentials{
		ServiceAccount: file.Firebase.ServiceAccount,
		Web:            file.Firebase.Web,
		VapidKey:       file.Firebase.VapidKey,
	}, nil
}

// --- Dotenv file ---

func loadFromEnvFile(path string) (ProviderCredentials, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return ProviderCredentials{}, err
	}
	return credentialsFromLookup(func(key string) string { return vars[key] }), nil
}

func credentialsFromLookup(get func(key string) string) ProviderCredentials {
	return ProviderCredentials{
		ServiceAccount: ServiceAccount{
			Type:                    get("FIREBASE_SERVICE_ACCOUNT_TYPE"),
			ProjectID:               get("FIREBASE_SERVICE_ACCOUNT_PROJECT_ID"),
			PrivateKeyID:            get("FIREBASE_SERVICE_ACCOUNT_PRIVATE_KEY_ID"),
			PrivateKey:              get("FIREBASE_SERVICE_ACCOUNT_PRIVATE_KEY"),
			ClientEmail:             get("FIREBASE_SERVICE_ACCOUNT_CLIENT_EMAIL"),
			ClientID:                get("FIREBASE_SERVICE_ACCOUNT_CLIENT_ID"),
			AuthURI:                 get("FIREBASE_SERVICE_ACCOUNT_AUTH_URI"),
			TokenURI:                get("FIREBASE_SERVICE_ACCOUNT_TOKEN_URI"),
			AuthProviderX509CertURL: get("FIREBASE_SERVICE_ACCOUNT_AUTH_PROVIDER_X509_CERT_URL"),
			ClientX509CertURL:       get("FIREBASE_SERVICE_ACCOUNT_CLIENT_X509_CERT_URL"),
			UniverseDomain:          get("FIREBASE_SERVICE_ACCOUNT_UNIVERSE_DOMAIN"),
		},
		Web: WebSDKConfig{
			APIKey:            get("FIREBASE_API_KEY"),
			AuthDomain:        get("FIREBASE_AUTH_DOMAIN"),
			ProjectID:         get("FIREBASE_PROJECT_ID"),
			StorageBucket:     get("FIREBASE_STORAGE_BUCKET"),
			MessagingSenderID: get("FIREBASE_MESSAGING_SENDER_ID"),
			AppID:             get("FIREBASE_APP_ID"),
			MeasurementID:     get("FIREBASE_MEASUREMENT_ID"),
		},
		VapidKey: get("FIREBASE_VAPID_KEY"),
	}
}

// --- Process environment ---

// envCredentials читается envconfig с префиксом FIREBASE.
type envCredentials struct {
	AccountType       string `envconfig:"SERVICE_ACCOUNT_TYPE" default:"service_account"`
	ProjectID         string `envconfig:"SERVICE_ACCOUNT_PROJECT_ID"`
	PrivateKeyID      string `envconfig:"SERVICE_ACCOUNT_PRIVATE_KEY_ID"`
	PrivateKey        string `envconfig:"SERVICE_ACCOUNT_PRIVATE_KEY"`
	ClientEmail       string `envconfig:"SERVICE_ACCOUNT_CLIENT_EMAIL"`
	ClientID          string `envconfig:"SERVICE_ACCOUNT_CLIENT_ID"`
	AuthURI           string `envconfig:"SERVICE_ACCOUNT_AUTH_URI" default:"https://accounts.google.com/o/oauth2/auth"`
	TokenURI          string `envconfig:"SERVICE_ACCOUNT_TOKEN_URI" default:"https://oauth2.googleapis.com/token"`
	CertURL           string `envconfig:"SERVICE_ACCOUNT_AUTH_PROVIDER_X509_CERT_URL" default:"https://www.googleapis.com/oauth2/v1/certs"`
	ClientCertURL     string `envconfig:"SERVICE_ACCOUNT_CLIENT_X509_CERT_URL"`
	UniverseDomain    string `envconfig:"SERVICE_ACCOUNT_UNIVERSE_DOMAIN" default:"googleapis.com"`
	APIKey            string `envconfig:"API_KEY"`
	AuthDomain        string `envconfig:"AUTH_DOMAIN"`
	WebProjectID      string `envconfig:"PROJECT_ID"`
	StorageBucket     string `envconfig:"STORAGE_BUCKET"`
	MessagingSenderID string `envconfig:"MESSAGING_SENDER_ID"`
	AppID             string `envconfig:"APP_ID"`
	MeasurementID     string `envconfig:"MEASUREMENT_ID"`
	VapidKey          string `envconfig:"VAPID_KEY"`
}

func loadFromProcessEnv() (ProviderCredentials, error) {
	var fromEnv envCredentials
	if err := envconfig.Process("FIREBASE", &fromEnv); err != nil {
		return ProviderCredentials{}, fmt.Errorf("failed to process FIREBASE_* environment: %w", err)
	}
	return ProviderCredentials{
		ServiceAccount: ServiceAccount{
			Type:                    fromEnv.AccountType,
			ProjectID:               fromEnv.ProjectID,
			PrivateKeyID:            fromEnv.PrivateKeyID,
			PrivateKey:              fromEnv.PrivateKey,
			ClientEmail:             fromEnv.ClientEmail,
			ClientID:                fromEnv.ClientID,
			AuthURI:                 fromEnv.AuthURI,
			TokenURI:                fromEnv.TokenURI,
			AuthProviderX509CertURL: fromEnv.CertURL,
			ClientX509CertURL:       fromEnv.ClientCertURL,
			UniverseDomain:          fromEnv.UniverseDomain,
		},
		Web: WebSDKConfig{
			APIKey:            fromEnv.APIKey,
			AuthDomain:        fromEnv.AuthDomain,
			ProjectID:         fromEnv.WebProjectID,
			StorageBucket:     fromEnv.StorageBucket,
			MessagingSenderID: fromEnv.MessagingSenderID,
			AppID:             fromEnv.AppID,
			MeasurementID:     fromEnv.MeasurementID,
		},
		VapidKey: fromEnv.VapidKey,
	}, nil
}
