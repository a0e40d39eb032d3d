package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClausesSQL(t *testing.T) {
	c := Clauses{
		Select: "ID, post_name",
		From:   "wp_posts",
		Joins:  []string{"LEFT JOIN wp_postmeta ON wp_posts.ID = wp_postmeta.post_id"},
		Where:  []string{"post_status = 'publish'", "post_type = ?"},
		Limit:  10,
		Offset: 20,
	}

	assert.Equal(t,
		"SELECT ID, post_name FROM wp_posts "+
			"LEFT JOIN wp_postmeta ON wp_posts.ID = wp_postmeta.post_id "+
			"WHERE post_status = 'publish' AND post_type = ? "+
			"LIMIT 10 OFFSET 20",
		c.SQL())
}

func TestClausesSQLMinimal(t *testing.T) {
	c := Clauses{
		Select: "COUNT(*)",
		From:   "wp_users",
	}
	assert.Equal(t, "SELECT COUNT(*) FROM wp_users", c.SQL())
}

func TestClausesSQLGroupAndOrder(t *testing.T) {
	c := Clauses{
		Select:  "post_type, COUNT(*)",
		From:    "wp_posts",
		GroupBy: "post_type",
		OrderBy: "post_type ASC",
	}
	assert.Equal(t, "SELECT post_type, COUNT(*) FROM wp_posts GROUP BY post_type ORDER BY post_type ASC", c.SQL())
}

func TestFiltersAdjustClauses(t *testing.T) {
	c := Clauses{
		Select: "ID",
		From:   "wp_posts",
		Where:  []string{"post_status = 'publish'"},
	}

	var f Filter = func(c *Clauses) {
		c.Where = append(c.Where, "post_password = ''")
	}
	applyFilter(f, &c)
	applyFilter(nil, &c)

	assert.Equal(t, "SELECT ID FROM wp_posts WHERE post_status = 'publish' AND post_password = ''", c.SQL())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
