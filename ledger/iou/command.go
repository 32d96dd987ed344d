package iou

import (
	"fmt"
	"github.com/lunfardo314/unitrie/common"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/lazyslice"
	"golang.org/x/crypto/ed25519"
)

// CommandKind is the closed set of intents a transaction can carry
type CommandKind byte

const (
	CommandUnknown = CommandKind(iota)
	CommandCreate
)

const MaxSigners = 256

func (k CommandKind) String() string {
	switch k {
	case CommandCreate:
		return "Create"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(k))
	}
}

// Command is an intent attached to the transaction with the keys asserted as its signers
type Command struct {
	Kind    CommandKind
	Signers []ed25519.PublicKey
}

func NewCommand(kind CommandKind, signers ...ed25519.PublicKey) *Command {
	return &Command{
		Kind:    kind,
		Signers: signers,
	}
}

// SignerSet is the set of distinct signer keys
func (c *Command) SignerSet() map[string]struct{} {
	ret := make(map[string]struct{}, len(c.Signers))
	for _, pk := range c.Signers {
		ret[string(pk)] = struct{}{}
	}
	return ret
}

func (c *Command) HasSigner(pubKey ed25519.PublicKey) bool {
	_, ok := c.SignerSet()[string(pubKey)]
	return ok
}

func (c *Command) String() string {
	ret := c.Kind.String() + "["
	for i, pk := range c.Signers {
		if i > 0 {
			ret += ","
		}
		ret += shortKey(pk)
	}
	return ret + "]"
}

// Bytes serializes command as array: kind, array of signer keys
func (c *Command) Bytes() []byte {
	signers := lazyslice.EmptyArray(MaxSigners)
	for _, pk := range c.Signers {
		signers.Push([]byte(pk))
	}
	return lazyslice.MakeArray(byte(c.Kind), signers).Bytes()
}

func CommandFromBytes(data []byte) (*Command, error) {
	arr, err := lazyslice.ParseArray(data, 2)
	if err != nil {
		return nil, fmt.Errorf("CommandFromBytes: %v", err)
	}
	if arr.NumElements() != 2 || len(arr.At(0)) != 1 {
		return nil, fmt.Errorf("CommandFromBytes: wrong command format")
	}
	signers, err := lazyslice.ParseArray(arr.At(1), MaxSigners)
	if err != nil {
		return nil, fmt.Errorf("CommandFromBytes: signers: %v", err)
	}
	ret := &Command{
		Kind:    CommandKind(arr.At(0)[0]),
		Signers: make([]ed25519.PublicKey, 0, signers.NumElements()),
	}
	signers.ForEach(func(i int, pk []byte) bool {
		if len(pk) != ed25519.PublicKeySize {
			err = fmt.Errorf("CommandFromBytes: wrong length of signer key @ %d", i)
			return false
		}
		ret.Signers = append(ret.Signers, common.Concat(pk))
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func shortKey(pk ed25519.PublicKey) string {
	if len(pk) > 4 {
		return easyfl.Fmt(pk[:4]) + ".."
	}
	return easyfl.Fmt(pk)
}
