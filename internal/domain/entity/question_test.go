package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_OptionChecks(t *testing.T) {
	q := &Question{
		Options:       StringArray{"Дума", "Совет Федерации", "Правительство"},
		CorrectOption: 1,
	}

	assert.True(t, q.IsCorrect(1))
	assert.False(t, q.IsCorrect(0))
	assert.False(t, q.IsCorrect(TimeoutOption), "Таймаут не совпадает с правильным вариантом")

	assert.True(t, q.IsValidOption(0))
	assert.True(t, q.IsValidOption(2))
	assert.False(t, q.IsValidOption(3))
	assert.False(t, q.IsValidOption(-1))

	assert.Equal(t, 3, q.OptionsCount())
}

func TestStringArray_ScanValue(t *testing.T) {
	// Запись в JSONB и чтение обратно
	src := StringArray{"Один", "Два"}
	raw, err := src.Value()
	require.NoError(t, err)

	var dst StringArray
	require.NoError(t, dst.Scan(raw))
	assert.Equal(t, src, dst)

	// Пустой массив сериализуется как [] вместо null
	empty := StringArray{}
	raw, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), raw)

	// NULL и пустые данные дают пустой массив
	var fromNil StringArray
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
	require.NoError(t, fromNil.Scan([]byte{}))
	assert.Empty(t, fromNil)

	// Неожиданный тип драйвера
	assert.Error(t, fromNil.Scan("not bytes"))
}
