package kaggle

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/mitchellh/go-homedir"
)

const credentialsFile = "kaggle.json"

var ErrNoCredentials = errors.New("kaggle: no credentials found (set KAGGLE_USERNAME and KAGGLE_KEY or provide kaggle.json)")

type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`

	// Source is the file the credentials came from, or "environment".
	Source string `json:"-"`
}

// Lookup controls where credentials are searched. The zero value uses the
// process environment, the working directory and the user's home.
type Lookup struct {
	WorkDir string
	HomeDir string
	Getenv  func(string) string
}

// FindCredentials searches with the default Lookup.
func FindCredentials() (*Credentials, error) {
	return Lookup{}.Find()
}

// Find returns the first credentials found. KAGGLE_USERNAME and KAGGLE_KEY
// win over any file; files are tried in the order returned by Paths.
func (l Lookup) Find() (*Credentials, error) {
	getenv := l.getenv()
	if user, key := getenv("KAGGLE_USERNAME"), getenv("KAGGLE_KEY"); user != "" && key != "" {
		return &Credentials{Username: user, Key: key, Source: "environment"}, nil
	}

	for _, p := range l.Paths() {
		c, err := LoadCredentials(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, ErrNoCredentials
}

// Paths lists the candidate kaggle.json files: the working directory, then
// $KAGGLE_CONFIG_DIR, then ~/.kaggle.
func (l Lookup) Paths() []string {
	getenv := l.getenv()
	paths := []string{filepath.Join(l.WorkDir, credentialsFile)}
	if dir := getenv("KAGGLE_CONFIG_DIR"); dir != "" {
		paths = append(paths, filepath.Join(dir, credentialsFile))
	}
	home := l.HomeDir
	if home == "" {
		home, _ = homedir.Dir()
	}
	if home != "" {
		paths = append(paths, filepath.Join(home, ".kaggle", credentialsFile))
	}
	return paths
}

func (l Lookup) getenv() func(string) string {
	if l.Getenv != nil {
		return l.Getenv
	}
	return os.Getenv
}

func LoadCredentials(path string) (*Credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("kaggle: parse %s: %w", path, err)
	}
	if c.Username == "" || c.Key == "" {
		return nil, fmt.Errorf("kaggle: %s is missing username or key", path)
	}
	c.Source = path
	return &c, nil
}

func basicAuth(c Credentials) string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Key))
}
