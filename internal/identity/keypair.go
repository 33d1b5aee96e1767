package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/taskstore/internal/ir"
)

// Keypair holds an ed25519 private key.
type Keypair struct {
	private ed25519.PrivateKey
}

// Generate creates a keypair from rand (crypto/rand.Reader when nil).
func Generate(rand io.Reader) (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{private: priv}, nil
}

// FromSeed creates a keypair from a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// Identity returns the public identity.
func (k *Keypair) Identity() ir.Identity {
	var id ir.Identity
	copy(id[:], k.private.Public().(ed25519.PublicKey))
	return id
}

// Sign signs req. The request's Signer is set to this keypair's identity
// before signing.
func (k *Keypair) Sign(req ir.Request) (ir.SignedRequest, error) {
	req.Signer = k.Identity()
	payload, err := req.SigningBytes()
	if err != nil {
		return ir.SignedRequest{}, fmt.Errorf("sign request: %w", err)
	}
	var sig ir.Signature
	copy(sig[:], ed25519.Sign(k.private, payload))
	return ir.SignedRequest{Request: req, Signature: sig}, nil
}

// SaveKeyFile writes the seed as hex to path with owner-only permissions.
// Refuses to overwrite an existing file.
func (k *Keypair) SaveKeyFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrKeyFileExists, path)
	}
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}

	_, werr := fmt.Fprintln(f, hex.EncodeToString(k.private.Seed()))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write key file: %w", werr)
	}
	return nil
}

// LoadKeyFile reads a keypair written by SaveKeyFile.
func LoadKeyFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}
	kp, err := FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", path, err)
	}
	return kp, nil
}

// ErrKeyFileExists is returned when keygen would clobber an existing key.
var ErrKeyFileExists = errors.New("identity: key file already exists")
