package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL é a validade fixa de uma sessão.
const SessionTTL = 24 * time.Hour

var (
	// ErrTokenMalformed cobre token ilegível, assinatura inválida ou claims incoerentes.
	ErrTokenMalformed = errors.New("token malformado")
	// ErrTokenExpired indica token íntegro porém vencido.
	ErrTokenExpired = errors.New("token expirado")
	// ErrTokenRevoked indica token encerrado por logout.
	ErrTokenRevoked = errors.New("token revogado")
)

// Identity é a conta autenticada.
type Identity struct {
	ID     int64  `json:"id"`
	Funcao string `json:"funcao"`
	Email  string `json:"email"`
}

// Claims representa as informações presentes no token de sessão.
type Claims struct {
	ID     int64  `json:"id"`
	Funcao string `json:"funcao"`
	jwt.RegisteredClaims
}

// SessionManager encapsula emissão e validação de tokens de sessão.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager cria o gerenciador com o segredo do servidor.
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: SessionTTL, now: time.Now}
}

// WithClock troca a fonte de horário (testes).
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Issue cria um JWT HS256 para a identidade. Mesma entrada, segredo e instante geram o mesmo token.
func (m *SessionManager) Issue(id Identity) (string, *Claims, error) {
	now := m.now().UTC().Truncate(time.Second)

	claims := &Claims{
		ID:     id.ID,
		Funcao: id.Funcao,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify valida assinatura e expiração e devolve as claims.
func (m *SessionManager) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID <= 0 || claims.Funcao == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
