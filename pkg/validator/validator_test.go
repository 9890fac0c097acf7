package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

type shopper struct {
	Name  string `json:"name" validate:"required" message:"Nome é obrigatório"`
	Email string `json:"email" validate:"required,loosemail" message:"E-mail inválido"`
	CPF   string `json:"cpf" validate:"required,cpf"`
	Age   int    `json:"age" validate:"gte=0,lte=150"`
}

type address struct {
	CEP    string `json:"cep" validate:"cep" message:"CEP inválido"`
	Street string `json:"street" validate:"required"`
}

type envelope struct {
	Address address `json:"address"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	s := shopper{Name: "Ana", Email: "ana@example.com", CPF: "123.456.789-09", Age: 30}
	assert.NoError(t, Validate(s))
}

func TestValidate_CustomMessages(t *testing.T) {
	err := Validate(shopper{Email: "ana", CPF: "123"})
	fields := fieldsOf(t, err)

	assert.Equal(t, "Nome é obrigatório", fields["name"])
	assert.Equal(t, "E-mail inválido", fields["email"])
	assert.Equal(t, "must have 11 digits", fields["cpf"])
}

func TestValidate_GenericMessage(t *testing.T) {
	err := Validate(shopper{Name: "Ana", Email: "ana@x.io", CPF: "12345678909", Age: 200})
	assert.Equal(t, "must be less than or equal to 150", fieldsOf(t, err)["age"])
	assert.Contains(t, err.Error(), "field 'age'")
}

func TestValidate_NestedCustomMessage(t *testing.T) {
	err := Validate(envelope{Address: address{CEP: "1234567", Street: "Rua A"}})
	assert.Equal(t, "CEP inválido", fieldsOf(t, err)["cep"])
}

func TestValidate_CEPAcceptsPunctuation(t *testing.T) {
	assert.NoError(t, Validate(address{CEP: "01310-100", Street: "Av. Paulista"}))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "01310100", Digits("01310-100"))
	assert.Equal(t, "12345678909", Digits("123.456.789-09"))
	assert.Equal(t, "", Digits("abc"))
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"cep":"01310100","street":"Rua B"}`))
	var a address
	require.NoError(t, DecodeAndValidate(r, &a))
	assert.Equal(t, "Rua B", a.Street)

	bad := httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
	err := DecodeAndValidate(bad, &a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	err := Validate(&shopper{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}
