// Package abi hand-encodes the quorum withdrawal contract call. The call
// signature is withdraw(address[2],uint256[2],bytes32,uint8[],bytes32[]):
// a fixed head of five 32-byte words followed by two offset words and the
// two dynamic arrays. The encoding is pure and deterministic; the payload
// is hashed and verified on-chain, so byte-identical output for identical
// inputs is a hard requirement.
package abi

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	wordSize = 32

	// headSize is the byte length of the five fixed words. Dynamic-array
	// offsets are measured from the start of the argument block, so the
	// first array always begins at this offset.
	headSize = 5 * wordSize

	methodSignature = "withdraw(address[2],uint256[2],bytes32,uint8[],bytes32[])"
)

// ECDSAComponents is one 65-byte signature split for on-chain recovery.
type ECDSAComponents struct {
	R [32]byte
	S [32]byte
	V byte
}

// SplitSignature decomposes a 0x-prefixed 65-byte hex signature into its
// r, s and recovery components.
func SplitSignature(signature string) (ECDSAComponents, error) {
	raw, err := hexutil.Decode(signature)
	if err != nil {
		return ECDSAComponents{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != 65 {
		return ECDSAComponents{}, fmt.Errorf("signature must be 65 bytes, got %d", len(raw))
	}
	var c ECDSAComponents
	copy(c.R[:], raw[:32])
	copy(c.S[:], raw[32:64])
	c.V = raw[64]
	return c, nil
}

// EncodeWithdrawalArgs encodes the withdrawal argument block. Signatures are
// encoded in the order given; the collector's completion order is observable
// on-chain and must be preserved.
func EncodeWithdrawalArgs(tokenAddress, userAddress common.Address, amountWei *big.Int, expiration int64, code string, signatures []string) (string, error) {
	if amountWei == nil || amountWei.Sign() < 0 {
		return "", fmt.Errorf("amount must be non-negative")
	}
	if amountWei.BitLen() > 256 {
		return "", fmt.Errorf("amount overflows uint256")
	}
	if expiration < 0 {
		return "", fmt.Errorf("expiration must be non-negative")
	}
	codeBytes := []byte(code)
	if len(codeBytes) > wordSize {
		return "", fmt.Errorf("code longer than 32 bytes: %q", code)
	}

	split := make([]ECDSAComponents, len(signatures))
	for i, sig := range signatures {
		c, err := SplitSignature(sig)
		if err != nil {
			return "", fmt.Errorf("signature %d: %w", i, err)
		}
		split[i] = c
	}

	k := len(split)
	// length word + packed recovery bytes
	vRegion := wordSize + padLen(k)
	// The first dynamic array starts right after the fixed head; the second
	// offset accounts for the byte length of the v region, not its element
	// count.
	offsetV := headSize
	offsetRS := headSize + vRegion

	var buf bytes.Buffer
	buf.Grow(headSize + 2*wordSize + vRegion + wordSize + 2*k*wordSize)

	// Fixed head: token, user, amount, expiration, code.
	buf.Write(common.LeftPadBytes(tokenAddress.Bytes(), wordSize))
	buf.Write(common.LeftPadBytes(userAddress.Bytes(), wordSize))
	buf.Write(common.LeftPadBytes(amountWei.Bytes(), wordSize))
	buf.Write(common.LeftPadBytes(new(big.Int).SetInt64(expiration).Bytes(), wordSize))
	buf.Write(common.RightPadBytes(codeBytes, wordSize))

	// Offset words.
	buf.Write(uintWord(uint64(offsetV)))
	buf.Write(uintWord(uint64(offsetRS)))

	// uint8[]: length word, then one recovery byte per signature packed
	// 32-per-word and zero-padded.
	buf.Write(uintWord(uint64(k)))
	packed := make([]byte, padLen(k))
	for i, c := range split {
		packed[i] = c.V
	}
	buf.Write(packed)

	// bytes32[]: length word, then r and s of every signature flattened.
	buf.Write(uintWord(uint64(2 * k)))
	for _, c := range split {
		buf.Write(c.R[:])
		buf.Write(c.S[:])
	}

	return hexutil.Encode(buf.Bytes()), nil
}

// EncodeWithdrawalCall prepends the 4-byte method selector to the encoded
// argument block, producing submit-ready call data.
func EncodeWithdrawalCall(tokenAddress, userAddress common.Address, amountWei *big.Int, expiration int64, code string, signatures []string) (string, error) {
	args, err := EncodeWithdrawalArgs(tokenAddress, userAddress, amountWei, expiration, code, signatures)
	if err != nil {
		return "", err
	}
	selector := crypto.Keccak256([]byte(methodSignature))[:4]
	return hexutil.Encode(selector) + args[2:], nil
}

// padLen rounds n bytes up to a whole number of 32-byte words.
func padLen(n int) int {
	return (n + wordSize - 1) / wordSize * wordSize
}

func uintWord(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), wordSize)
}
