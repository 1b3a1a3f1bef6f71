// Copyright 2025 Multisig Orchestrator

// genkeys generates an Ed25519 keypair for use as the orchestrator's fee
// payer (or as a test signer) and prints the derived ledger identifiers.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"github.com/xstelea/multisig/pkg/codec"
)

func main() {
	networkID := flag.Uint("network", 2, "network id (1=mainnet, 2=stokenet)")
	flag.Parse()

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatal("Failed to generate key:", err)
	}

	keyHash, err := codec.PublicKeyHashHex(publicKey)
	if err != nil {
		log.Fatal(err)
	}
	account, err := codec.VirtualAccountAddress(publicKey, uint8(*networkID))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("private key hex: %s\n", hex.EncodeToString(privateKey.Seed()))
	fmt.Printf("public key hex:  %s\n", hex.EncodeToString(publicKey))
	fmt.Printf("key hash:        %s\n", keyHash)
	fmt.Printf("account address: %s\n", account)
	fmt.Println()
	fmt.Println("Fund the account, then set FEE_PAYER_PRIVATE_KEY_HEX to the private key.")
}
