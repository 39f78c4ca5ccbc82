package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CredentialsKey string `envconfig:"CREDENTIALS_ENCRYPTION_KEY" default:"2Bw7kQ9yTe3LmXz1VpR8sNc4HgJ6fD0aU5iO7rE2WqY="`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
