package firebase

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// service-account keys are a few KB; anything bigger is not one
const maxServiceAccountSize = 1 << 20

// Config selects the project and credentials for an App.
type Config struct {
	// ProjectID may be left empty when a service-account file is given;
	// it is then taken from the key's project_id field.
	ProjectID string `mapstructure:"project-id"`

	// Path to the service-account JSON key:
	// https://console.firebase.google.com/project/_/settings/serviceaccounts/adminsdk
	ServiceAccount string `mapstructure:"service-account"`

	// Per-call HTTP timeout. Zero means 10 seconds.
	Timeout time.Duration `mapstructure:"timeout"`
}

func NewConfig(src *viper.Viper) (*Config, error) {

	c := &Config{}
	if err := src.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "config")
	}

	if c.ServiceAccount != "" {
		if _, err := os.Stat(c.ServiceAccount); err != nil {
			return nil, errors.Wrap(err, "path to service-account")
		}
	}

	return c, nil
}

func readServiceAccount(path string) ([]byte, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	} else if info.Size() > maxServiceAccountSize {
		return nil, errors.Errorf("invalid service-account file size: %d", info.Size())
	}

	buf := bytes.NewBuffer(make([]byte, 0, info.Size()))
	if _, err := io.Copy(buf, f); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
