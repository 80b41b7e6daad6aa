package util

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// InputError marca falha de validação de dados enviados pelo cliente.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// Invalid cria um InputError formatado.
func Invalid(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInputError indica se err é (ou embrulha) um InputError.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// ValidateStruct aplica as tags `validate` do payload e devolve InputError legível.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, prettyError(fe))
	}
	return &InputError{Msg: strings.Join(msgs, "; ")}
}

func prettyError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " obrigatório"
	case "email":
		return fe.Field() + " inválido"
	case "min":
		return fmt.Sprintf("%s deve ter pelo menos %s caracteres", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s deve ter exatamente %s caracteres", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s deve ser maior que %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " inválido"
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return Invalid("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Invalid("email inválido")
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return Invalid("senha deve ter pelo menos 8 caracteres")
	}
	return nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return Invalid("%s obrigatório", field)
	}
	return nil
}
