// Package web3 houses blockchain connectivity utilities, including signer
// abstractions, RPC clients, contract deployment helpers, and multi-chain
// configuration. It lets the token launch pipeline deploy ERC-20 contracts
// and query network state on EVM compatible networks such as Ethereum, Base,
// and Polygon through a single uniform interface.
package web3
