// Package directory implements the PublicKeyDirectory collaborator:
// a read-only map from party name to that party's published signing
// and encryption public keys.
package directory

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/keys"
)

// ErrUnknownParty is returned when a name has no published keys.
var ErrUnknownParty = errors.New("unknown party")

// Entry is one party's published public keys.
type Entry struct {
	SigningPublic    copcrypto.KeyPair
	EncryptionPublic copcrypto.KeyPair
}

// PublicKeyDirectory maps party name to published public keys.
// Implementations must give read-consistent snapshots: a lookup
// sequence performed during one Protect or Share call must not
// observe a half-updated directory.
type PublicKeyDirectory interface {
	Publics(name string) (signingPub, encPub copcrypto.KeyPair, err error)
}

// memoryDirectory is an in-memory reference PublicKeyDirectory, safe
// for concurrent reads and for registration from a loader goroutine.
type memoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory creates an empty in-memory PublicKeyDirectory.
func NewMemory() *memoryDirectory {
	return &memoryDirectory{entries: make(map[string]Entry)}
}

// Register publishes name's signing and encryption public keys,
// overwriting any prior entry for name.
func (d *memoryDirectory) Register(name string, signingPub, encPub copcrypto.KeyPair) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[name] = Entry{SigningPublic: signingPub, EncryptionPublic: encPub}
}

// Publics returns name's published signing and encryption public
// keys, or ErrUnknownParty if name has never been registered.
func (d *memoryDirectory) Publics(name string) (signingPub, encPub copcrypto.KeyPair, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[name]
	if !ok {
		return nil, nil, fmt.Errorf("directory: %s: %w", name, ErrUnknownParty)
	}
	return entry.SigningPublic, entry.EncryptionPublic, nil
}

// seedFile is the on-disk shape for LoadFromFile: one record per
// party, each public key stored as a JWK document, since that is the
// key representation the rest of this module already speaks
// (crypto/formats).
type seedFile struct {
	Parties []seedParty `yaml:"parties" json:"parties"`
}

type seedParty struct {
	Name          string `yaml:"name" json:"name"`
	SigningJWK    string `yaml:"signing_jwk" json:"signing_jwk"`
	EncryptionJWK string `yaml:"encryption_jwk" json:"encryption_jwk"`
}

// importPublicKeyPair imports a single public JWK document and wraps it
// as a verify/agreement-only copcrypto.KeyPair, dispatching on the
// concrete public key type the importer returns.
func importPublicKeyPair(importer copcrypto.KeyImporter, jwkDoc string) (copcrypto.KeyPair, error) {
	pub, err := importer.ImportPublic([]byte(jwkDoc), copcrypto.KeyFormatJWK)
	if err != nil {
		return nil, err
	}

	switch p := pub.(type) {
	case ed25519.PublicKey:
		return keys.NewPublicOnlyEd25519(p, ""), nil
	case *ecdh.PublicKey:
		return keys.NewPublicOnlyX25519(p, ""), nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
}

// LoadFromFile seeds a new in-memory PublicKeyDirectory from a YAML or
// JSON file (detected by content, not extension) shaped as seedFile.
// Each party's keys are imported as public-only JWK documents.
func LoadFromFile(path string) (*memoryDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("directory: parse seed file: %w", err)
	}

	importer := copcrypto.NewJWKImporter()
	dir := NewMemory()
	for _, party := range seed.Parties {
		signingPub, err := importPublicKeyPair(importer, party.SigningJWK)
		if err != nil {
			return nil, fmt.Errorf("directory: party %s: signing key: %w", party.Name, err)
		}
		encPub, err := importPublicKeyPair(importer, party.EncryptionJWK)
		if err != nil {
			return nil, fmt.Errorf("directory: party %s: encryption key: %w", party.Name, err)
		}
		dir.Register(party.Name, signingPub, encPub)
	}

	return dir, nil
}
