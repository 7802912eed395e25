package domain

// Variable describes one measured quantity offered by a site.
type Variable struct {
	VariableCode string `json:"variable_code"`
	VariableID   string `json:"variable_id"`
	VariableName string `json:"variable_name"`
	Unit         string `json:"unit"`
}

// Variables is the variable table for a single site.
type Variables []Variable

var variableColumns = []string{"variable_code", "variable_id", "variable_name", "unit"}

// Columns implements Table.
func (v Variables) Columns() []string { return append([]string(nil), variableColumns...) }

// Records implements Table.
func (v Variables) Records() [][]string {
	out := make([][]string, len(v))
	for i, variable := range v {
		out[i] = []string{variable.VariableCode, variable.VariableID, variable.VariableName, variable.Unit}
	}
	return out
}

// Codes returns the variable codes in table order.
func (v Variables) Codes() []string {
	codes := make([]string, len(v))
	for i := range v {
		codes[i] = v[i].VariableCode
	}
	return codes
}

// Missing returns the requested codes that are not offered, preserving
// request order. An empty result means every requested code is available.
func (v Variables) Missing(codes ...string) []string {
	available := make(map[string]struct{}, len(v))
	for i := range v {
		available[v[i].VariableCode] = struct{}{}
	}
	var missing []string
	for _, code := range codes {
		if _, ok := available[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing
}
