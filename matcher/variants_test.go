package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQuery(t *testing.T) {
	assert.Equal(t, "mario kart", SanitizeQuery("  <mario>   kart "))
	assert.Equal(t, "script", SanitizeQuery("<script>"))
}

func TestMainTitle(t *testing.T) {
	assert.Equal(t, "The Legend of Zelda", MainTitle("The Legend of Zelda: Breath of the Wild"))
	assert.Equal(t, "Suikoden I&II HD Remaster", MainTitle("Suikoden I&II HD Remaster - Gate Rune and Dunan Unification Wars"))
	assert.Equal(t, "", MainTitle("Metroid Dread"))
}

func TestNameVariants(t *testing.T) {
	variants := NameVariants("The Legend of Zelda: Breath of the Wild", 3)
	assert.Equal(t, []string{
		"The Legend of Zelda: Breath of the Wild",
		"The Legend of Zelda Breath of the Wild",
		"The Legend of Zelda",
		"The Legend of",
	}, variants)
}

func TestNameVariants_DropsDuplicates(t *testing.T) {
	assert.Equal(t, []string{"Splatoon 3"}, NameVariants("Splatoon 3", 3))
	assert.Empty(t, NameVariants("   ", 3))
}
