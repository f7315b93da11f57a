package medium

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	raw := `
exchanges:
  acetate: EX_ac_e
  ammonium: EX_nh4_e
scaling:
  k_ac: 0.1
  k_nh4: 2.0
base_bounds:
  EX_o2_e:
    lb: -20
yeast_extract:
  enabled_if_gL_gt: 0.5
  open_uptake_lb: -1
  open_exchanges_when_enabled:
    - EX_btn_e
`
	path := filepath.Join(t.TempDir(), "medium.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "EX_ac_e", cfg.Exchanges["acetate"])
	assert.Equal(t, 0.1, cfg.Scaling.KAc)
	require.NotNil(t, cfg.BaseBounds["EX_o2_e"].LB)
	assert.Equal(t, -20.0, *cfg.BaseBounds["EX_o2_e"].LB)
	assert.Equal(t, 0.5, cfg.YeastExtract.EnabledIfGLGreaterThan)
	assert.Equal(t, []string{"EX_btn_e"}, cfg.YeastExtract.OpenExchanges)
}

func TestLoadConfigRejectsIncomplete(t *testing.T) {
	raw := "exchanges:\n  acetate: EX_ac_e\n"
	path := filepath.Join(t.TempDir(), "medium.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "acetate, ammonium")
}

func TestLoadConfigUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unsupported medium config extension")
}

func TestLoadConditions(t *testing.T) {
	raw := `condition_id,set_name,pH0,acetate_mM,measured_OD,notes
c1,batch,7.0,45,0.8,first
c2,batch,,120,,
`
	path := filepath.Join(t.TempDir(), "conditions.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	conds, err := LoadConditions(path)
	require.NoError(t, err)
	require.Len(t, conds, 2)

	c1 := conds[0]
	assert.Equal(t, "c1", c1.ID)
	assert.Equal(t, "batch", c1.SetName)
	assert.Equal(t, "first", c1.Notes)
	require.NotNil(t, c1.PH0)
	assert.Equal(t, 7.0, *c1.PH0)
	require.NotNil(t, c1.AcetateMM)
	assert.Equal(t, 45.0, *c1.AcetateMM)

	c2 := conds[1]
	assert.Nil(t, c2.PH0)
	assert.Nil(t, c2.MeasuredOD)
	require.NotNil(t, c2.AcetateMM)
	assert.Equal(t, 120.0, *c2.AcetateMM)
}

func TestLoadConditionsDuplicateID(t *testing.T) {
	raw := "condition_id\nc1\nc1\n"
	path := filepath.Join(t.TempDir(), "conditions.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadConditions(path)
	assert.ErrorContains(t, err, "duplicate condition_id")
}

func TestLoadConditionsMissingIDColumn(t *testing.T) {
	raw := "name,acetate_mM\nc1,5\n"
	path := filepath.Join(t.TempDir(), "conditions.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadConditions(path)
	assert.ErrorContains(t, err, "missing condition_id column")
}
