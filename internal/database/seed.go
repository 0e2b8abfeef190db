package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"agentmarket/internal/models"
	"agentmarket/internal/slug"
)

type demoUser struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      models.Role
}

// demoUsers are the development accounts, one per role. All are created
// with a confirmed email so they can sign in immediately.
var demoUsers = []demoUser{
	{"admin@9jaagents.com", "Admin123!", "Admin", "User", models.RoleAdmin},
	{"creator@9jaagents.com", "Creator123!", "Creator", "User", models.RoleCreator},
	{"user@9jaagents.com", "User123!", "Regular", "User", models.RoleUser},
}

type demoCategory struct {
	name        string
	description string
	color       string
}

var demoCategories = []demoCategory{
	{"Customer Service", "Support desks, chat assistants and help-center bots", "#3b82f6"},
	{"Content Creation", "Copywriting, social media and translation agents", "#ec4899"},
	{"Finance", "Bookkeeping, invoicing and fintech assistants", "#10b981"},
	{"Education", "Tutors, exam prep and learning companions", "#f59e0b"},
	{"Agriculture", "Farm planning, weather and market price agents", "#84cc16"},
	{"Healthcare", "Appointment, triage and wellness assistants", "#ef4444"},
}

type demoAgent struct {
	name        string
	description string
	tags        string // Postgres array literal
	price       int64
	category    string
	sales       int
	rating      float64
	status      models.AgentStatus
}

var demoAgents = []demoAgent{
	{"ChatBot Nigeria", "Multilingual customer support in English, Pidgin, Yoruba, Igbo and Hausa", "{chat,support,multilingual}", 15000, "Customer Service", 320, 4.8, models.AgentStatusApproved},
	{"Naija Copywriter", "Marketing copy tuned for Nigerian audiences", "{writing,marketing}", 8500, "Content Creation", 210, 4.6, models.AgentStatusApproved},
	{"Ledger Lite", "Automated bookkeeping for small businesses", "{accounting,invoices}", 12000, "Finance", 145, 4.4, models.AgentStatusApproved},
	{"WAEC Tutor", "Exam preparation coach for secondary school students", "{education,exams}", 5000, "Education", 480, 4.9, models.AgentStatusApproved},
	{"FarmWise", "Planting calendars and crop price alerts", "{agriculture,weather}", 7000, "Agriculture", 95, 4.2, models.AgentStatusApproved},
	{"ClinicDesk", "Appointment booking and reminder assistant", "{health,scheduling}", 20000, "Healthcare", 0, 0, models.AgentStatusPending},
}

// Seed populates the database with development data: one demo account per
// role, the category list and a handful of sample agents owned by the demo
// creator. Every step is idempotent.
func Seed(db *sql.DB) error {
	ids := make(map[models.Role]string, len(demoUsers))
	for _, u := range demoUsers {
		id, err := seedUser(db, u)
		if err != nil {
			return err
		}
		ids[u.role] = id
	}

	for _, c := range demoCategories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug, description, color)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (slug) DO NOTHING
		`, c.name, slug.Generate(c.name), c.description, c.color)
		if err != nil {
			return fmt.Errorf("seed insert category %s: %w", c.name, err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM agents").Scan(&count); err != nil {
		return fmt.Errorf("seed check agents: %w", err)
	}
	if count > 0 {
		slog.Info("agents already seeded, skipping")
		return nil
	}

	for _, a := range demoAgents {
		_, err := db.Exec(`
			INSERT INTO agents (name, description, tags, price, category_id, creator_id,
			                    total_sales, rating, total_revenue, status)
			SELECT $1, $2, $3::text[], $4, c.id, $5, $6, $7, $8, $9
			FROM categories c WHERE c.slug = $10
		`, a.name, a.description, a.tags, a.price, ids[models.RoleCreator],
			a.sales, a.rating, int64(a.sales)*a.price, string(a.status), slug.Generate(a.category))
		if err != nil {
			return fmt.Errorf("seed insert agent %s: %w", a.name, err)
		}
	}

	slog.Info("database seeded", "users", len(demoUsers), "categories", len(demoCategories), "agents", len(demoAgents))
	return nil
}

// seedUser creates the demo account if missing and returns its id.
func seedUser(db *sql.DB, u demoUser) (string, error) {
	var id string
	err := db.QueryRow("SELECT id FROM users WHERE email = $1", u.email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("seed check user %s: %w", u.email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("seed bcrypt: %w", err)
	}

	first, last := u.firstName, u.lastName
	meta := models.UserMetadata{Role: u.role, FirstName: &first, LastName: &last}.Normalize()

	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, metadata, email_confirmed_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, u.email, string(hash), meta).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("seed insert user %s: %w", u.email, err)
	}

	slog.Info("seeded demo user", "email", u.email, "role", u.role)
	return id, nil
}
