package chamado

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/repo"
)

// Falhas de integridade referencial, na ordem em que são verificadas.
var (
	ErrTypeNotFound         = errors.New("tipo de chamado não encontrado")
	ErrRequesterNotFound    = errors.New("solicitante não encontrado")
	ErrTechnicianNotFound   = errors.New("técnico não encontrado")
	ErrInvalidAssetTag      = errors.New("patrimônio deve ter 7 caracteres")
	ErrDuplicateAssetTicket = errors.New("já existe chamado deste tipo para o patrimônio")
)

// IsIntegrityError indica uma das falhas de integridade referencial.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrTypeNotFound) ||
		errors.Is(err, ErrRequesterNotFound) ||
		errors.Is(err, ErrTechnicianNotFound) ||
		errors.Is(err, ErrInvalidAssetTag) ||
		errors.Is(err, ErrDuplicateAssetTicket)
}

// Referencias são os campos do chamado que apontam para outras tabelas.
type Referencias struct {
	TipoID     int64
	UsuarioID  int64
	TecnicoID  *int64
	Patrimonio string
}

// Validator confere as referências de um chamado contra o estado atual do banco.
// Cada verificação é uma consulta e a primeira falha interrompe as demais.
type Validator struct {
	db db.DataAccess
}

// NewValidator cria o validador sobre o gateway (ou uma transação dele).
func NewValidator(data db.DataAccess) *Validator {
	return &Validator{db: data}
}

// ValidateCreate roda as cinco verificações de abertura de chamado.
func (v *Validator) ValidateCreate(ctx context.Context, ref Referencias) error {
	if err := v.checkReferences(ctx, ref); err != nil {
		return err
	}
	return v.checkUnique(ctx, ref, 0)
}

// ValidateUpdate confere o chamado já mesclado com as alterações.
// A unicidade só é consultada quando patrimônio ou tipo mudaram.
func (v *Validator) ValidateUpdate(ctx context.Context, id int64, ref Referencias, pairChanged bool) error {
	if err := v.checkReferences(ctx, ref); err != nil {
		return err
	}
	if !pairChanged {
		return nil
	}
	return v.checkUnique(ctx, ref, id)
}

func (v *Validator) checkReferences(ctx context.Context, ref Referencias) error {
	if _, err := v.db.ReadOne(ctx, tablePool, db.ByID(ref.TipoID)); err != nil {
		return notFoundAs(err, ErrTypeNotFound)
	}

	requester, err := v.db.ReadOne(ctx, tableUsuarios, db.ByID(ref.UsuarioID))
	if err != nil {
		return notFoundAs(err, ErrRequesterNotFound)
	}
	switch requester.String("funcao") {
	case repo.FuncaoUsuario, repo.FuncaoAdministrador:
	default:
		return ErrRequesterNotFound
	}

	if ref.TecnicoID != nil {
		tecnico, err := v.db.ReadOne(ctx, tableUsuarios, db.ByID(*ref.TecnicoID))
		if err != nil {
			return notFoundAs(err, ErrTechnicianNotFound)
		}
		if tecnico.String("funcao") != repo.FuncaoTecnico {
			return ErrTechnicianNotFound
		}
	}

	if utf8.RuneCountInString(ref.Patrimonio) != PatrimonioLen {
		return ErrInvalidAssetTag
	}
	return nil
}

// checkUnique procura outro chamado com o mesmo par (patrimônio, tipo); self é ignorado.
func (v *Validator) checkUnique(ctx context.Context, ref Referencias, self int64) error {
	rows, err := v.db.ReadAll(ctx, tableChamados, db.Where(
		db.Eq("patrimonio", ref.Patrimonio),
		db.Eq("tipo_id", ref.TipoID),
	))
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Int64("id") != self {
			return ErrDuplicateAssetTicket
		}
	}
	return nil
}

func notFoundAs(err, target error) error {
	if errors.Is(err, db.ErrNotFound) {
		return target
	}
	return err
}
