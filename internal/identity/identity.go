// Package identity derives per-drone Ed25519 keypairs and signs the
// path traces carried by FloodResponse packets, so a simulation
// controller can verify that a reported discovery path was actually
// attested by every drone it claims to have crossed.
//
// This is additive to the routing core: the forwarding path itself
// carries no cryptographic authentication (spec.md's Non-goals rule
// that out), but a signed record of *discovered* topology is a
// separate, optional concern a controller may choose to check.
package identity

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"

	"github.com/dronemesh/corerouter/packet"
)

var (
	// ErrInvalidPubKeySize is returned when a public key is not 32 bytes.
	ErrInvalidPubKeySize = errors.New("identity: invalid public key size: expected 32 bytes")
	// ErrInvalidSignature is returned by Verify when a signature does not match.
	ErrInvalidSignature = errors.New("identity: signature verification failed")
)

// KeyPair holds a drone's Ed25519 signing key.
type KeyPair struct {
	NodeID     packet.NodeId
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// DeriveKeyPair generates a deterministic Ed25519 keypair for a drone
// from a simulation-wide seed and the drone's id, so repeated runs of
// the same topology produce the same identities without persisting
// key material anywhere. The seed and id are hashed with SHA-512 and
// the first 32 bytes of the digest become the Ed25519 seed.
func DeriveKeyPair(id packet.NodeId, seed [32]byte) *KeyPair {
	h := sha512.New()
	h.Write(seed[:])
	h.Write([]byte{byte(id)})
	material := h.Sum(nil)[:ed25519.SeedSize]

	priv := ed25519.NewKeyFromSeed(material)
	return &KeyPair{
		NodeID:     id,
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}
}

// X25519PublicKey converts the keypair's Ed25519 public key to its
// X25519 (Montgomery) equivalent, for discovery-fingerprint exchange
// independent of the signing key.
func (kp *KeyPair) X25519PublicKey() ([]byte, error) {
	point, err := new(edwards25519.Point).SetBytes(kp.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid Ed25519 public key: %w", err)
	}
	return point.BytesMontgomery(), nil
}

// X25519PrivateKey converts the keypair's Ed25519 private key to its
// X25519 equivalent following RFC 8032: SHA-512 the seed, then clamp.
func (kp *KeyPair) X25519PrivateKey() []byte {
	seed := kp.PrivateKey.Seed()
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

// SharedSecret derives an ECDH shared secret with a peer's Ed25519
// public key, usable as a discovery-fingerprint pre-shared value
// between two drones that have exchanged advertisements out of band.
func (kp *KeyPair) SharedSecret(peerPubKey ed25519.PublicKey) ([]byte, error) {
	if len(peerPubKey) != ed25519.PublicKeySize {
		return nil, ErrInvalidPubKeySize
	}
	peerX25519, err := (&KeyPair{PublicKey: peerPubKey}).X25519PublicKey()
	if err != nil {
		return nil, err
	}
	return curve25519.X25519(kp.X25519PrivateKey(), peerX25519)
}

// SignPathTrace signs the path trace carried by a FloodResponse,
// binding it to the flood identity (initiator + flood id) so a
// replayed or spliced trace from a different flood cannot be passed
// off as this one's. The signed message is:
//
//	initiator(1) || flood_id(8 LE) || len(path_trace)(4 LE) || (node(1) || type(1))*
func SignPathTrace(priv ed25519.PrivateKey, initiator packet.NodeId, floodID uint64, trace []packet.PathTraceEntry) []byte {
	msg := encodePathTraceMessage(initiator, floodID, trace)
	return ed25519.Sign(priv, msg)
}

// VerifyPathTrace checks a signature produced by SignPathTrace.
func VerifyPathTrace(pub ed25519.PublicKey, initiator packet.NodeId, floodID uint64, trace []packet.PathTraceEntry, sig []byte) error {
	msg := encodePathTraceMessage(initiator, floodID, trace)
	if !ed25519.Verify(pub, msg, sig) {
		return ErrInvalidSignature
	}
	return nil
}

func encodePathTraceMessage(initiator packet.NodeId, floodID uint64, trace []packet.PathTraceEntry) []byte {
	msg := make([]byte, 1+8+4+2*len(trace))
	msg[0] = byte(initiator)
	binary.LittleEndian.PutUint64(msg[1:9], floodID)
	binary.LittleEndian.PutUint32(msg[9:13], uint32(len(trace)))
	off := 13
	for _, entry := range trace {
		msg[off] = byte(entry.Node)
		msg[off+1] = byte(entry.Type)
		off += 2
	}
	return msg
}
