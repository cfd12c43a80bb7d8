package services

import (
	"context"
	"fmt"
	"log"

	"github.com/classbank/backend/internal/bank"
	"github.com/classbank/backend/internal/models"
)

// Classroom starting positions. Teachers get a deep pocket and a perfect
// score so they can seed the economy; students all start from the same spot.
const (
	studentStartingBalance = 100000 // $1,000.00
	studentStartingScore   = 650
	adminStartingBalance   = 1000000
	adminStartingScore     = models.MaxCreditScore
)

type seedUser struct {
	username string
	password string
}

var seedAdmins = []seedUser{
	{"Panda43", "Fox43"},
	{"Tiger72", "Bear72"},
}

var seedStudents = []seedUser{
	{"Lion12", "Cat12"},
	{"Zebra34", "Horse34"},
	{"Monkey56", "Banana56"},
	{"Rabbit21", "Carrot21"},
	{"Dog77", "Bone77"},
	{"Owl15", "Night15"},
	{"Frog62", "Pond62"},
	{"Turtle09", "Shell09"},
}

func newClassroomAccount(username, password string, admin bool) (*models.Account, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleStandard,
		Balance:      studentStartingBalance,
		CreditScore:  studentStartingScore,
	}
	if admin {
		account.Role = models.RoleAdministrator
		account.Balance = adminStartingBalance
		account.CreditScore = adminStartingScore
	}
	return account, nil
}

// SeedClassroom provisions the default roster when the store is empty. It is
// a no-op on every boot after the first.
func SeedClassroom(ctx context.Context, store bank.Store) error {
	count, err := store.CountAccounts(ctx)
	if err != nil {
		return fmt.Errorf("counting accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Println("[SEED] Seeding database with new classroom accounts...")
	for _, admin := range seedAdmins {
		account, err := newClassroomAccount(admin.username, admin.password, true)
		if err != nil {
			return err
		}
		if err := store.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("seeding admin %s: %w", admin.username, err)
		}
	}
	for _, student := range seedStudents {
		account, err := newClassroomAccount(student.username, student.password, false)
		if err != nil {
			return err
		}
		if err := store.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("seeding student %s: %w", student.username, err)
		}
	}

	log.Printf("[SEED] Seeding complete: %d admins, %d students created", len(seedAdmins), len(seedStudents))
	return nil
}
