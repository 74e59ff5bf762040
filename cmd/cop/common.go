package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/formats"
	"github.com/chainofproduct/cop/crypto/storage"
	"github.com/chainofproduct/cop/directory"
	"github.com/chainofproduct/cop/envelope"
	"github.com/chainofproduct/cop/groupsvc"
	"github.com/chainofproduct/cop/keystore"
	"github.com/chainofproduct/cop/pipeline"
)

// Exit codes per the command surface contract: 0 success, 2 input
// error, 3 authorization denied, 4 cryptographic failure, 1 other.
const (
	exitOK            = 0
	exitOther         = 1
	exitInput         = 2
	exitUnauthorized  = 3
	exitCryptoFailure = 4
)

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrMalformed),
		errors.Is(err, pipeline.ErrUnknownParty),
		errors.Is(err, pipeline.ErrUnknownGroup),
		errors.Is(err, pipeline.ErrWrongBuyer),
		errors.Is(err, pipeline.ErrAlreadyExists):
		return exitInput
	case errors.Is(err, pipeline.ErrSignatureInvalid),
		errors.Is(err, pipeline.ErrNotARecipient):
		return exitUnauthorized
	case errors.Is(err, pipeline.ErrAuthFailure),
		errors.Is(err, pipeline.ErrRandomnessFailure),
		errors.Is(err, pipeline.ErrKeyStoreFailure):
		return exitCryptoFailure
	default:
		return exitOther
	}
}

// keystoreMACKeyEnv names the environment variable holding the hex-
// encoded HMAC key the file keystore uses to detect on-disk tampering.
// godotenv.Load in main.go makes a .env entry just as good as an
// exported shell variable.
const keystoreMACKeyEnv = "COP_KEYSTORE_MAC_KEY"

func newKeyStore(dir string) (*keystore.KeyStore, error) {
	hexKey := os.Getenv(keystoreMACKeyEnv)
	if hexKey == "" {
		return nil, fmt.Errorf("%w: %s must be set to a hex-encoded MAC key to open a file keystore", pipeline.ErrKeyStoreFailure, keystoreMACKeyEnv)
	}
	macKey, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid hex: %v", pipeline.ErrKeyStoreFailure, keystoreMACKeyEnv, err)
	}

	backend, err := storage.NewFileKeyStorage(dir, macKey)
	if err != nil {
		return nil, fmt.Errorf("%w: open keystore at %s: %v", pipeline.ErrKeyStoreFailure, dir, err)
	}
	return keystore.New(backend), nil
}

// optionalKeyStore opens a keystore at dir, or returns a nil *KeyStore
// when dir is empty. Check and Audit never dereference p.Keys, so a
// nil store is safe for commands that only verify signatures.
func optionalKeyStore(dir string) (*keystore.KeyStore, error) {
	if dir == "" {
		return nil, nil
	}
	return newKeyStore(dir)
}

// seedFragment is a local, tag-compatible mirror of directory's
// unexported on-disk seed shape. This package reads and writes seed
// files only through this type and directory.LoadFromFile — it never
// reaches into directory's internals.
type seedFragment struct {
	Parties []seedParty `yaml:"parties" json:"parties"`
}

type seedParty struct {
	Name          string `yaml:"name" json:"name"`
	SigningJWK    string `yaml:"signing_jwk" json:"signing_jwk"`
	EncryptionJWK string `yaml:"encryption_jwk" json:"encryption_jwk"`
}

func loadDirectory(path string) (directory.PublicKeyDirectory, error) {
	if path == "" {
		return directory.NewMemory(), nil
	}
	dir, err := directory.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load directory %s: %v", pipeline.ErrUnknownParty, path, err)
	}
	return dir, nil
}

func loadSeedFragment(path string) (seedFragment, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return seedFragment{}, nil
	}
	if err != nil {
		return seedFragment{}, fmt.Errorf("read directory seed %s: %w", path, err)
	}
	var frag seedFragment
	if err := yaml.Unmarshal(raw, &frag); err != nil {
		return seedFragment{}, fmt.Errorf("parse directory seed %s: %w", path, err)
	}
	return frag, nil
}

func saveSeedFragment(path string, frag seedFragment) error {
	raw, err := yaml.Marshal(frag)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// publishParty exports name's public signing and encryption keys as
// JWK and records them in the directory seed file at path, overwriting
// any prior entry for name. Run after keygen so counterparties can
// build a PublicKeyDirectory that knows about name.
func publishParty(path, name string, ks *keystore.KeyStore) error {
	signingPub, encPub, err := ks.Publics(name)
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrKeyStoreFailure, err)
	}

	exporter := formats.NewJWKExporter()
	signingJWK, err := exporter.ExportPublic(signingPub, copcrypto.KeyFormatJWK)
	if err != nil {
		return fmt.Errorf("export signing public key: %w", err)
	}
	encJWK, err := exporter.ExportPublic(encPub, copcrypto.KeyFormatJWK)
	if err != nil {
		return fmt.Errorf("export encryption public key: %w", err)
	}

	frag, err := loadSeedFragment(path)
	if err != nil {
		return err
	}

	entry := seedParty{Name: name, SigningJWK: string(signingJWK), EncryptionJWK: string(encJWK)}
	replaced := false
	for i, p := range frag.Parties {
		if p.Name == name {
			frag.Parties[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		frag.Parties = append(frag.Parties, entry)
	}

	return saveSeedFragment(path, frag)
}

// groupsFile is the on-disk shape for a groups definition: group id to
// its ordered member list.
type groupsFile struct {
	Groups map[string][]string `yaml:"groups" json:"groups"`
}

// loadGroups builds an in-memory GroupResolver from a YAML file
// shaped as groupsFile. An empty path yields an empty resolver — any
// group lookup against it fails UnknownGroup.
func loadGroups(path string) (groupsvc.GroupResolver, error) {
	resolver := groupsvc.NewMemory()
	if path == "" {
		return resolver, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups file %s: %w", path, err)
	}
	var gf groupsFile
	if err := yaml.Unmarshal(raw, &gf); err != nil {
		return nil, fmt.Errorf("parse groups file %s: %w", path, err)
	}
	for id, members := range gf.Groups {
		if err := resolver.CreateGroup(id, members); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrUnknownGroup, err)
		}
	}
	return resolver, nil
}

func readEnvelope(path string) (*envelope.Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read envelope %s: %w", path, err)
	}
	e, err := envelope.Decode(raw)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func writeEnvelope(path string, e *envelope.Envelope) error {
	raw, err := envelope.Encode(e)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// fileDocumentStore adapts a single envelope file on disk to the
// pipeline.DocumentStore interface, for a CLI that has no separate
// application server: Share and Audit operate on the one envelope at
// path, reading it fresh for every call and writing addenda back
// immediately so the next invocation sees them.
type fileDocumentStore struct {
	path string
}

func newFileDocumentStore(path string) *fileDocumentStore {
	return &fileDocumentStore{path: path}
}

func (s *fileDocumentStore) Put(e *envelope.Envelope) error {
	return writeEnvelope(s.path, e)
}

func (s *fileDocumentStore) Get(txID []byte) (*envelope.Envelope, error) {
	return readEnvelope(s.path)
}

func (s *fileDocumentStore) AppendAddendum(txID []byte, addendum envelope.Addendum) error {
	e, err := readEnvelope(s.path)
	if err != nil {
		return err
	}
	e.Addenda = append(e.Addenda, addendum)
	return writeEnvelope(s.path, e)
}

func (s *fileDocumentStore) ShareRecords(txID []byte) ([]envelope.ShareRecord, error) {
	e, err := readEnvelope(s.path)
	if err != nil {
		return nil, err
	}
	records := make([]envelope.ShareRecord, 0, len(e.Addenda))
	for _, a := range e.Addenda {
		records = append(records, a.ShareRecord)
	}
	return records, nil
}

// txIDDisplay renders a 16-byte TxID as a UUID string for operator-
// facing output. TxID is protocol-opaque random bytes, never a parsed
// or generated UUID — this is display formatting only, so a TxID of
// any other length falls back to hex.
func txIDDisplay(txID []byte) string {
	id, err := uuid.FromBytes(txID)
	if err != nil {
		return fmt.Sprintf("%x", txID)
	}
	return id.String()
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
