package auth

import (
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera um hash Argon2id (inclui os parâmetros dentro do próprio hash).
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// Verify compara a senha com o hash armazenado.
// Hashes bcrypt ($2a$, $2b$, $2y$) vieram da base legada e continuam aceitos.
func Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		}
		return err == nil, err
	}
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}

// Matches é Verify sem erro: hash ilegível conta como senha incorreta.
func Matches(password, encodedHash string) bool {
	ok, err := Verify(password, encodedHash)
	return err == nil && ok
}

// NeedsRehash indica hash legado que deve ser regravado em Argon2id.
func NeedsRehash(encodedHash string) bool {
	return isBcrypt(encodedHash)
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
