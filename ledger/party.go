package ledger

import (
	"bytes"
	"fmt"
	"github.com/lunfardo314/unitrie/common"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/lazyslice"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

const PartyIDLength = 32

// PartyID is the blake2b hash of the party's owning key. Two parties are the same entity
// if and only if their IDs are equal
type PartyID [PartyIDLength]byte

// Party is an identity known to the ledger: a human-readable name and the owning public key.
// The ledger never signs on behalf of a party, it only compares keys
type Party struct {
	Name      string
	PublicKey ed25519.PublicKey
}

func NewParty(name string, pubKey ed25519.PublicKey) *Party {
	return &Party{
		Name:      name,
		PublicKey: pubKey,
	}
}

func PartyIDFromPublicKey(pubKey ed25519.PublicKey) PartyID {
	return blake2b.Sum256(pubKey)
}

func (id PartyID) Bytes() []byte {
	return id[:]
}

func (id PartyID) String() string {
	return easyfl.Fmt(id[:])
}

func (p *Party) ID() PartyID {
	return PartyIDFromPublicKey(p.PublicKey)
}

// Equal compares identities. Names do not take part in the comparison
func (p *Party) Equal(p1 *Party) bool {
	if p == nil || p1 == nil {
		return p == p1
	}
	return bytes.Equal(p.PublicKey, p1.PublicKey)
}

// OwnsKey returns true if pubKey is the owning key of the party
func (p *Party) OwnsKey(pubKey ed25519.PublicKey) bool {
	return p != nil && bytes.Equal(p.PublicKey, pubKey)
}

func (p *Party) String() string {
	if p == nil {
		return "<nil party>"
	}
	id := p.ID()
	return fmt.Sprintf("%s(%s..)", p.Name, easyfl.Fmt(id[:4]))
}

// Bytes serializes the party as a 2-element array: name, public key
func (p *Party) Bytes() []byte {
	return lazyslice.MakeArray([]byte(p.Name), []byte(p.PublicKey)).Bytes()
}

func PartyFromBytes(data []byte) (*Party, error) {
	arr, err := lazyslice.ParseArray(data, 2)
	if err != nil {
		return nil, fmt.Errorf("PartyFromBytes: %v", err)
	}
	if arr.NumElements() != 2 {
		return nil, fmt.Errorf("PartyFromBytes: wrong number of elements %d", arr.NumElements())
	}
	if len(arr.At(1)) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("PartyFromBytes: wrong public key length %d", len(arr.At(1)))
	}
	return &Party{
		Name:      string(arr.At(0)),
		PublicKey: common.Concat(arr.At(1)),
	}, nil
}
