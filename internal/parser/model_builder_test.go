package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/internal/fragment"
)

const accountSource = `import math

RATE = 0.1


class Account(Base, metaclass=Meta):
    rate = 0.5

    def __init__(self, owner, balance: float = 0.0):
        self.owner = owner
        self.balance = balance

    @property
    def total(self) -> float:
        return self.balance * (1 + self.rate)

    class Meta:
        ordering = "owner"


def helper(*args, **kwargs):
    return len(args)


async def fetch(url):
    return await get(url)
`

func TestModelBuilderClasses(t *testing.T) {
	module, err := ParseModule(context.Background(), []byte(accountSource), "bank/account.py")
	require.NoError(t, err)
	assert.Equal(t, "bank/account.py", module.Path)

	require.Len(t, module.Classes, 2)
	account := module.Classes[0]
	assert.Equal(t, "Account", account.Name)
	assert.Equal(t, "bank/account.py::Account", account.QualifiedName())
	assert.Equal(t, []string{"Base"}, account.Superclasses)
	assert.Equal(t, []string{"rate", "owner", "balance"}, account.Attributes)
	assert.Equal(t, 6, account.Location.StartLine)

	require.Len(t, account.Operations, 2)
	init := account.Operations[0]
	assert.Equal(t, "__init__", init.Name)
	assert.Equal(t, "Account", init.ClassName)
	assert.Equal(t, 0, init.Position)
	assert.Equal(t, []string{"owner", "balance"}, init.ParameterNames())
	require.Len(t, init.Parameters, 3)
	balance := init.Parameters[2]
	assert.Equal(t, "float", balance.Type)
	assert.Equal(t, "0.0", balance.Default)
	required, total := init.Arity()
	assert.Equal(t, 1, required)
	assert.Equal(t, 2, total)

	prop := account.Operations[1]
	assert.Equal(t, "total", prop.Name)
	assert.Equal(t, 1, prop.Position)
	assert.Equal(t, []string{"property"}, prop.Decorators)
	assert.Equal(t, "float", prop.ReturnType)
	assert.Equal(t, "bank/account.py::Account.total", prop.Key())

	meta := module.Classes[1]
	assert.Equal(t, "Account.Meta", meta.Name)
	assert.Equal(t, []string{"ordering"}, meta.Attributes)
	assert.Empty(t, meta.Operations)
}

func TestModelBuilderFunctions(t *testing.T) {
	module, err := ParseModule(context.Background(), []byte(accountSource), "bank/account.py")
	require.NoError(t, err)

	require.Len(t, module.Functions, 2)
	helper := module.Functions[0]
	assert.Equal(t, "helper", helper.Name)
	assert.Empty(t, helper.ClassName)
	require.Len(t, helper.Parameters, 2)
	assert.Equal(t, fragment.ParameterVarArgs, helper.Parameters[0].Kind)
	assert.Equal(t, "args", helper.Parameters[0].Name)
	assert.Equal(t, fragment.ParameterKwArgs, helper.Parameters[1].Kind)
	assert.Equal(t, "kwargs", helper.Parameters[1].Name)
	assert.True(t, helper.HasVariadic())

	fetch := module.Functions[1]
	assert.Equal(t, "fetch", fetch.Name)
	assert.True(t, fetch.Async)
	assert.Equal(t, 1, fetch.Position)
	assert.False(t, helper.Async)

	ops := module.AllOperations()
	require.Len(t, ops, 4)
	assert.Equal(t, "helper", ops[0].Name)
	assert.Equal(t, "__init__", ops[2].Name)
}

func TestModelBuilderParametersAreDeclared(t *testing.T) {
	module, err := ParseModule(context.Background(), []byte(accountSource), "bank/account.py")
	require.NoError(t, err)

	init := module.Classes[0].Operations[0]
	leaves := init.Body.Leaves()
	require.Len(t, leaves, 2)
	for _, leaf := range leaves {
		assert.Equal(t, fragment.KindAssignment, leaf.Kind, leaf.Text)
		assert.Empty(t, leaf.Declarations)
	}
	assert.Equal(t, "self.owner = owner\n", leaves[0].Text)
}

func TestParseModuleSyntaxError(t *testing.T) {
	_, err := ParseModule(context.Background(), []byte("def broken(:\n    pass\n"), "broken.py")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseModuleEmpty(t *testing.T) {
	module, err := ParseModule(context.Background(), []byte(""), "empty.py")
	require.NoError(t, err)
	assert.Empty(t, module.Classes)
	assert.Empty(t, module.Functions)
}
