package profiles

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hectane/go-acl"
	yaml "gopkg.in/yaml.v3"
)

var ErrProfileStoreNotFound = errors.New("profile store is not found")
var ErrCannotCreateConfig = errors.New("cannot create profile store")
var ErrCannotUpdateConfig = errors.New("cannot update profile store")
var ErrProfileInvalid = errors.New("exodash profile is invalid")

const (
	// EnvApiUrl overrides apiRoot of the profile in use.
	EnvApiUrl = "EXODASH_API_URL"

	// EnvApiOrigin is the origin which relative apiRoot is resolved against.
	EnvApiOrigin = "EXODASH_API_ORIGIN"

	DefaultApiRoot = "/api"
	DefaultOrigin  = "http://127.0.0.1:8000"
)

// ProfileStore is a map from profile name to Profile.
type ProfileStore map[string]*Profile

type Cert struct {
	// base64 encoded CA certificate
	CA string `yaml:"ca,omitempty"`
}

// Profile tells where the prediction API is.
type Profile struct {
	// base URL of the prediction API. "/model/info" and so on are appended to this.
	//
	// Relative path is allowed; it is resolved by Resolve.
	ApiRoot string `yaml:"apiRoot"`

	Cert Cert `yaml:"cert,omitempty"`

	// Timeout of each request, in seconds. 0 means no timeout.
	Timeout int `yaml:"timeout,omitempty"`
}

// Default is the profile used when no profile is configured.
func Default() *Profile {
	return &Profile{ApiRoot: DefaultApiRoot}
}

// RequestTimeout is Timeout as time.Duration.
func (p *Profile) RequestTimeout() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

func verifyUrl(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && (u.Scheme == "http" || u.Scheme == "https")
}

func verifyPEM(b64cert string) bool {
	bin, err := base64.StdEncoding.DecodeString(b64cert)
	if err != nil {
		return false
	}
	blk, _ := pem.Decode(bin)
	return blk != nil
}

// Verify Profile
//
// # Return
//
// nil if it is valid. Otherwise, ErrProfileInvalid error.
func (p *Profile) Verify() error {
	if !verifyUrl(p.ApiRoot) {
		return fmt.Errorf("%w: apiRoot is not http(s) URL: %s", ErrProfileInvalid, p.ApiRoot)
	}
	if p.Cert.CA != "" && !verifyPEM(p.Cert.CA) {
		return fmt.Errorf("%w: cert.ca is not PEM", ErrProfileInvalid)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("%w: timeout should not be negative: %d", ErrProfileInvalid, p.Timeout)
	}
	return nil
}

// Resolve applies environment overrides to a copy of p, and verifies it.
//
// When getenv(EnvApiUrl) is not empty, it replaces ApiRoot.
// Relative ApiRoot is resolved against getenv(EnvApiOrigin), or DefaultOrigin if it is empty.
func (p *Profile) Resolve(getenv func(string) string) (*Profile, error) {
	ret := *p
	if override := getenv(EnvApiUrl); override != "" {
		ret.ApiRoot = override
	}
	if ret.ApiRoot == "" {
		ret.ApiRoot = DefaultApiRoot
	}

	root, err := url.Parse(ret.ApiRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: apiRoot is not URL: %s", ErrProfileInvalid, ret.ApiRoot)
	}
	if !root.IsAbs() {
		origin := getenv(EnvApiOrigin)
		if origin == "" {
			origin = DefaultOrigin
		}
		base, err := url.Parse(origin)
		if err != nil || !base.IsAbs() {
			return nil, fmt.Errorf("%w: %s is not URL: %s", ErrProfileInvalid, EnvApiOrigin, origin)
		}
		ret.ApiRoot = base.ResolveReference(root).String()
	}

	if err := ret.Verify(); err != nil {
		return nil, err
	}
	return &ret, nil
}

// LoadProfileStore loads profile store from file.
func LoadProfileStore(filepath string) (ProfileStore, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrProfileStoreNotFound, filepath)
		}
		return nil, err
	}
	return Unmarshall(buf)
}

// Unmarshall profile store from yaml in byte array.
func Unmarshall(buf []byte) (ProfileStore, error) {
	ret := map[string]*Profile{}
	if err := yaml.Unmarshal(buf, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// newSafeFile creates an empty file which only the current user can access.
//
// If the file already exists, it is truncated.
func newSafeFile(filepath string) (*os.File, error) {
	f, err := os.OpenFile(filepath, os.O_TRUNC|os.O_CREATE|os.O_RDWR, os.FileMode(0600))
	if err != nil {
		return nil, err
	}

	// On windows, permission of the new file is not applied at creation.
	if err := acl.Chmod(filepath, os.FileMode(0600)); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Save profile store to file.
//
// The previous content is kept at path + ".backup" if writing is interrupted.
func (ps ProfileStore) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700)); err != nil {
		return err
	}

	bkpath := path + ".backup"
	bk, err := newSafeFile(bkpath)
	if err != nil {
		return err
	}
	keepBackup := false
	defer func() {
		bk.Close()
		if !keepBackup {
			os.Remove(bkpath)
		}
	}()

	f, err := os.OpenFile(path, os.O_RDWR, os.FileMode(0600))
	switch {
	case err == nil:
		// existing file may have loose permission.
		if err := acl.Chmod(path, os.FileMode(0600)); err != nil {
			f.Close()
			return err
		}
	case os.IsPermission(err):
		return fmt.Errorf("%w, because no permission to write file at %s", ErrCannotUpdateConfig, path)
	case os.IsNotExist(err):
		created, cerr := newSafeFile(path)
		if cerr != nil {
			return fmt.Errorf("%w: cannot create a file at %s", ErrCannotCreateConfig, path)
		}
		f = created
	default:
		return err
	}
	defer f.Close()

	if _, err := io.Copy(bk, f); err != nil {
		return err
	}

	buf, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}

	keepBackup = true
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		return err
	}
	keepBackup = false
	return nil
}
