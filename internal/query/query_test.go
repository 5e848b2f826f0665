package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowFrom(values map[string]interface{}) Row {
	return func(column string) (interface{}, bool) {
		v, ok := values[column]
		return v, ok
	}
}

func TestExprEval(t *testing.T) {
	t.Run("empty_expression_matches_everything", func(t *testing.T) {
		assert.True(t, Parse("").Eval(rowFrom(nil)))
	})

	t.Run("single_numeric_comparison", func(t *testing.T) {
		expr := Parse("age >= 18")
		assert.True(t, expr.Eval(rowFrom(map[string]interface{}{"age": float64(18)})))
		assert.False(t, expr.Eval(rowFrom(map[string]interface{}{"age": float64(17)})))
	})

	t.Run("string_equality", func(t *testing.T) {
		expr := Parse(`color == 'red'`)
		assert.True(t, expr.Eval(rowFrom(map[string]interface{}{"color": "red"})))
		assert.False(t, expr.Eval(rowFrom(map[string]interface{}{"color": "blue"})))
	})

	t.Run("and_connective_requires_both", func(t *testing.T) {
		expr := Parse("age >= 18 and alive == true")
		assert.True(t, expr.Eval(rowFrom(map[string]interface{}{"age": float64(20), "alive": true})))
		assert.False(t, expr.Eval(rowFrom(map[string]interface{}{"age": float64(20), "alive": false})))
	})

	t.Run("or_connective_requires_either", func(t *testing.T) {
		expr := Parse("color == 'red' or color == 'blue'")
		assert.True(t, expr.Eval(rowFrom(map[string]interface{}{"color": "blue"})))
		assert.False(t, expr.Eval(rowFrom(map[string]interface{}{"color": "green"})))
	})

	t.Run("missing_column_fails_the_term", func(t *testing.T) {
		expr := Parse("age >= 18")
		assert.False(t, expr.Eval(rowFrom(nil)))
	})
}

func TestDropUnknownColumns(t *testing.T) {
	t.Run("drops_terms_referencing_unknown_columns_but_keeps_the_rest", func(t *testing.T) {
		expr := Parse("age >= 18 and unknown_col == 'x'")
		filtered := expr.DropUnknownColumns(map[string]bool{"age": true})

		assert.Len(t, filtered.Terms, 1)
		assert.Equal(t, "age", filtered.Terms[0].Column)
	})

	t.Run("all_columns_known_leaves_expression_unchanged", func(t *testing.T) {
		expr := Parse("age >= 18")
		filtered := expr.DropUnknownColumns(map[string]bool{"age": true})
		assert.Equal(t, expr, filtered)
	})
}
