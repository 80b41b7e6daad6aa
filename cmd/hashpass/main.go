package main

import (
	"fmt"
	"os"

	"github.com/gestaozabele/chamados/internal/auth"
)

// hashpass gera o hash Argon2id de uma senha para carga manual em usuarios.senha_hash.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <senha> [hash-para-conferir]")
		os.Exit(1)
	}

	if len(os.Args) == 3 {
		ok, err := auth.Verify(os.Args[1], os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash ilegível: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ok)
		return
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
