package identity

import (
	"testing"

	"github.com/dronemesh/corerouter/packet"
)

func TestDeriveKeyPair_DeterministicPerSeed(t *testing.T) {
	seed := [32]byte{1, 2, 3}

	a := DeriveKeyPair(5, seed)
	b := DeriveKeyPair(5, seed)

	if string(a.PrivateKey) != string(b.PrivateKey) {
		t.Error("DeriveKeyPair is not deterministic for the same id and seed")
	}
}

func TestDeriveKeyPair_DistinctPerNode(t *testing.T) {
	seed := [32]byte{1, 2, 3}

	a := DeriveKeyPair(5, seed)
	b := DeriveKeyPair(6, seed)

	if string(a.PrivateKey) == string(b.PrivateKey) {
		t.Error("DeriveKeyPair produced identical keys for different node ids")
	}
}

func TestSignAndVerifyPathTrace(t *testing.T) {
	kp := DeriveKeyPair(2, [32]byte{9})
	trace := []packet.PathTraceEntry{
		{Node: 0, Type: packet.NodeTypeClient},
		{Node: 1, Type: packet.NodeTypeDrone},
		{Node: 2, Type: packet.NodeTypeDrone},
	}

	sig := SignPathTrace(kp.PrivateKey, 0, 5, trace)

	if err := VerifyPathTrace(kp.PublicKey, 0, 5, trace, sig); err != nil {
		t.Fatalf("VerifyPathTrace() = %v, want nil", err)
	}
}

func TestVerifyPathTrace_RejectsTamperedTrace(t *testing.T) {
	kp := DeriveKeyPair(2, [32]byte{9})
	trace := []packet.PathTraceEntry{
		{Node: 0, Type: packet.NodeTypeClient},
		{Node: 1, Type: packet.NodeTypeDrone},
	}
	sig := SignPathTrace(kp.PrivateKey, 0, 5, trace)

	tampered := append([]packet.PathTraceEntry(nil), trace...)
	tampered = append(tampered, packet.PathTraceEntry{Node: 9, Type: packet.NodeTypeDrone})

	if err := VerifyPathTrace(kp.PublicKey, 0, 5, tampered, sig); err == nil {
		t.Fatal("VerifyPathTrace() accepted a tampered trace")
	}
}

func TestVerifyPathTrace_RejectsWrongFloodID(t *testing.T) {
	kp := DeriveKeyPair(2, [32]byte{9})
	trace := []packet.PathTraceEntry{{Node: 0, Type: packet.NodeTypeClient}}
	sig := SignPathTrace(kp.PrivateKey, 0, 5, trace)

	if err := VerifyPathTrace(kp.PublicKey, 0, 6, trace, sig); err == nil {
		t.Fatal("VerifyPathTrace() accepted a signature for a different flood id")
	}
}

func TestSharedSecret_Symmetric(t *testing.T) {
	alice := DeriveKeyPair(1, [32]byte{1})
	bob := DeriveKeyPair(2, [32]byte{2})

	s1, err := alice.SharedSecret(bob.PublicKey)
	if err != nil {
		t.Fatalf("alice.SharedSecret() = %v", err)
	}
	s2, err := bob.SharedSecret(alice.PublicKey)
	if err != nil {
		t.Fatalf("bob.SharedSecret() = %v", err)
	}
	if string(s1) != string(s2) {
		t.Error("ECDH shared secrets are not symmetric")
	}
}

func TestSharedSecret_RejectsBadPubKeySize(t *testing.T) {
	alice := DeriveKeyPair(1, [32]byte{1})

	if _, err := alice.SharedSecret([]byte{1, 2, 3}); err != ErrInvalidPubKeySize {
		t.Fatalf("SharedSecret() error = %v, want ErrInvalidPubKeySize", err)
	}
}
