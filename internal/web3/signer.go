package web3

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
)

// NewSigner builds transact opts from a hex encoded private key. The key is
// expected to come from an environment variable, never from config files.
func NewSigner(privateKeyHex string, chainID *big.Int) (*bind.TransactOpts, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return nil, errors.New("未提供部署私钥")
	}
	if chainID == nil {
		return nil, errors.New("未提供链 ID")
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("构造交易签名器失败: %w", err)
	}
	return auth, nil
}
