package repository

import "github.com/Shrey-sa/tree-tracker/internal/digest/domain"

// The statements are shared by both backends; only placeholders and the
// blank-email check differ.

const priorityRank = `CASE t.priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END`

const selectOverdueTasks = `
SELECT t.id, t.title, t.task_type, t.priority, t.zone_id, z.name AS zone_name, t.tree_id, t.due_date,
       COALESCE(u.first_name, '') AS first_name, COALESCE(u.last_name, '') AS last_name, COALESCE(u.username, '') AS username
FROM maintenance_tasks t
JOIN zones z ON z.id = t.zone_id
LEFT JOIN users u ON u.id = t.assigned_to
WHERE t.status = 'pending' AND t.due_date < %s
ORDER BY t.due_date ASC, ` + priorityRank + ` DESC, t.id ASC`

const selectTreesDueForInspection = `
SELECT tr.id, COALESCE(tr.tag_number, '') AS tag_number, tr.current_health, tr.zone_id, z.name AS zone_name,
       COALESCE(s.common_name, '') AS species, tr.created_at,
       (SELECT MAX(h.logged_at) FROM health_logs h WHERE h.tree_id = tr.id) AS last_logged_at
FROM trees tr
JOIN zones z ON z.id = tr.zone_id
LEFT JOIN species s ON s.id = tr.species_id
WHERE tr.current_health <> 'dead'
  AND NOT EXISTS (SELECT 1 FROM health_logs h WHERE h.tree_id = tr.id AND h.logged_at >= %s)
ORDER BY tr.created_at DESC, tr.id DESC`

const selectStaff = `
SELECT u.id, u.username, u.first_name, u.last_name, COALESCE(u.email, '') AS email, u.role
FROM users u`

const selectRecipients = selectStaff + `
WHERE u.role IN ('admin', 'supervisor') AND u.email IS NOT NULL AND TRIM(u.email) <> ''
ORDER BY u.id`

const selectStaffZones = `SELECT user_id, zone_id FROM staff_zones ORDER BY user_id, zone_id`

type staffZone struct {
	UserID int64 `db:"user_id"`
	ZoneID int64 `db:"zone_id"`
}

func attachZones(staff []domain.Staff, pairs []staffZone) {
	byUser := make(map[int64][]int64, len(staff))
	for _, p := range pairs {
		byUser[p.UserID] = append(byUser[p.UserID], p.ZoneID)
	}
	for i := range staff {
		staff[i].ZoneIDs = byUser[staff[i].ID]
	}
}
