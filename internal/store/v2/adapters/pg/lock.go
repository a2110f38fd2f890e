package pg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/june5815/welive/internal/domain/repository"
)

// lockClause traduce el modo a SQL. Un modo desconocido entra en pánico.
func lockClause(m repository.LockMode) string {
	switch m.MustValid() {
	case repository.LockShare:
		return " FOR SHARE"
	case repository.LockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

// lockRow bloquea una fila de la tabla dada antes de la lectura que decide.
// Se hace aparte porque FOR UPDATE no se puede aplicar al lado nullable de
// un LEFT JOIN.
func lockRow(ctx context.Context, q querier, table, id string, m repository.LockMode) error {
	clause := lockClause(m)
	if clause == "" {
		return nil
	}
	var one int
	err := q.QueryRow(ctx, "SELECT 1 FROM "+table+" WHERE id = $1"+clause, id).Scan(&one)
	if err != nil {
		return mapReadError(err)
	}
	return nil
}

// filterClause arma el WHERE común a operaciones por rol sobre users (alias u).
// next es el número del primer placeholder libre.
func filterClause(f repository.JoinStatusFilter, next int) (string, []any) {
	where := "u.role = $" + strconv.Itoa(next)
	args := []any{string(f.Role)}
	if f.ApartmentID != "" {
		p := "$" + strconv.Itoa(next+1)
		where += fmt.Sprintf(` AND (
			EXISTS (SELECT 1 FROM residents r WHERE r.user_id = u.id AND r.apartment_id = %[1]s::uuid)
			OR EXISTS (SELECT 1 FROM apartments a WHERE a.admin_id = u.id AND a.id = %[1]s::uuid))`, p)
		args = append(args, f.ApartmentID)
	}
	return where, args
}

// LockByRole bloquea todas las filas del rol (ordenadas por id, para que dos
// operaciones masivas adquieran los locks en el mismo orden).
func (r *userRepo) LockByRole(ctx context.Context, f repository.JoinStatusFilter, m repository.LockMode) error {
	clause := lockClause(m)
	if clause == "" {
		return nil
	}
	where, args := filterClause(f, 1)
	rows, err := r.q.Query(ctx, "SELECT u.id FROM users u WHERE "+where+" ORDER BY u.id"+clause, args...)
	if err != nil {
		return mapError(fmt.Errorf("pg: lock users by role: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return mapError(fmt.Errorf("pg: lock users by role: %w", err))
	}
	return nil
}
