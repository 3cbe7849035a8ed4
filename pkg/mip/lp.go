package mip

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Maximum number of terms written on a single line, some LP readers have short line buffers
const termsPerLine = 8

// LPName is the column name of a variable in LP files. Readable variable names are kept as comments only, since LP
// readers disagree on the characters they accept
func LPName(variable int) string {
	return "x" + strconv.Itoa(variable)
}

// ParseLPName is the inverse of LPName
func ParseLPName(name string) (int, bool) {
	if !strings.HasPrefix(name, "x") {
		return 0, false
	}
	variable, err := strconv.Atoi(name[1:])
	if err != nil || variable < 0 {
		return 0, false
	}
	return variable, true
}

// WriteLP renders the model in CPLEX LP format. Every variable is listed in the objective (with a zero coefficient if
// need be) so that readers number the columns in variable order
func (m *Model) WriteLP(w io.Writer) error {
	writer := bufio.NewWriter(w)

	name := m.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(writer, "\\ %v\n", name)
	fmt.Fprintf(writer, "\\ variables: %d, constraints: %d, scale: %v\n", len(m.Variables), len(m.Constraints), m.ObjectiveScale())

	//** Objective
	coefficients := make([]float64, len(m.Variables))
	for _, term := range m.Objective {
		coefficients[term.Var] += term.Coef * m.ObjectiveScale()
	}
	objective := make([]Term, len(m.Variables))
	for variable, coefficient := range coefficients {
		objective[variable] = Term{Var: variable, Coef: coefficient}
	}
	writer.WriteString("Minimize\n obj:")
	writeTerms(writer, objective)
	writer.WriteString("\n")

	//** Constraints
	writer.WriteString("Subject To\n")
	for i, constraint := range m.Constraints {
		if constraint.Name != "" {
			fmt.Fprintf(writer, "\\ %v\n", constraint.Name)
		}
		fmt.Fprintf(writer, " c%d:", i)
		if len(constraint.Terms) == 0 {
			// An empty row still has to mention a column, a zero coefficient keeps it neutral
			writeTerms(writer, []Term{{Var: 0, Coef: 0}})
		} else {
			writeTerms(writer, constraint.Terms)
		}
		fmt.Fprintf(writer, " %v %v\n", constraint.Sense, formatNumber(constraint.RHS))
	}

	//** Domains
	writer.WriteString("Binary\n")
	for i, variable := range m.Variables {
		if variable.Name != "" && variable.Name != LPName(i) {
			fmt.Fprintf(writer, " %v \\ %v\n", LPName(i), variable.Name)
		} else {
			fmt.Fprintf(writer, " %v\n", LPName(i))
		}
	}
	writer.WriteString("End\n")

	return writer.Flush()
}

func writeTerms(writer *bufio.Writer, terms []Term) {
	for i, term := range terms {
		if i > 0 && i%termsPerLine == 0 {
			writer.WriteString("\n   ")
		}
		sign := "+"
		coefficient := term.Coef
		if coefficient < 0 {
			sign = "-"
			coefficient = -coefficient
		}
		fmt.Fprintf(writer, " %v %v %v", sign, formatNumber(coefficient), LPName(term.Var))
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
