package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/database"
	"github.com/qs3c/datafair_server/internal/model"
)

var (
	adminEmail    = flag.String("admin-email", "admin@datafair.local", "Admin account email")
	adminPassword = flag.String("admin-password", "", "Admin account password (skip admin when empty)")
	withSurveys   = flag.Bool("surveys", true, "Create demo surveys")
)

var dataTypes = []model.DataType{
	{Name: "Standortdaten", Description: "Anonymisierte Bewegungsmuster", Icon: "map-pin", MonthlyValue: 2.50, Category: "location", IsActive: true},
	{Name: "Einkaufsverhalten", Description: "Kategorien deiner Online-Einkäufe", Icon: "shopping-cart", MonthlyValue: 3.00, Category: "shopping", IsActive: true},
	{Name: "Fitnessdaten", Description: "Schritte und Aktivitätsminuten", Icon: "activity", MonthlyValue: 1.50, Category: "health", IsActive: true},
	{Name: "Browserverlauf", Description: "Besuchte Domains ohne Inhalte", Icon: "globe", MonthlyValue: 2.00, Category: "behavior", IsActive: true},
}

type demoSurvey struct {
	survey    model.Survey
	questions []model.Question
}

func demoSurveys() []demoSurvey {
	expires := time.Now().AddDate(0, 2, 0)
	maxResponses := 500
	yes := model.BoolAnswer(true)
	travelCriteria := model.QualificationCriteria{Questions: []model.GatingQuestion{
		{ID: "travels", Text: "Verreist du mindestens einmal im Jahr?", RequiredAnswer: &yes, DisqualifyReason: "Diese Umfrage richtet sich an Reisende."},
	}}

	return []demoSurvey{
		{
			survey: model.Survey{
				Title:             "Smartphone-Nutzung 2026",
				Description:       "Wie nutzt du dein Smartphone im Alltag?",
				Company:           "TechInsights GmbH",
				Category:          "tech",
				BaseReward:        3.50,
				EstimatedDuration: 8,
				MaxResponses:      &maxResponses,
				ExpiresAt:         &expires,
			},
			questions: []model.Question{
				{Key: "os", Text: "Welches Betriebssystem nutzt du?", Type: model.QuestionSingleChoice, Options: model.StringArray{"Android", "iOS", "Andere"}, Required: true},
				{Key: "hours", Text: "Wie viele Stunden pro Tag?", Type: model.QuestionNumber, Required: true},
				{Key: "satisfaction", Text: "Wie zufrieden bist du?", Type: model.QuestionScale, Required: true},
				{Key: "wish", Text: "Was wünschst du dir?", Type: model.QuestionText},
			},
		},
		{
			survey: model.Survey{
				Title:                 "Urlaubsplanung",
				Description:           "Deine Reisepläne für das nächste Jahr",
				Company:               "Reiseportal AG",
				Category:              "travel",
				BaseReward:            5.00,
				EstimatedDuration:     12,
				QualificationCriteria: travelCriteria,
			},
			questions: []model.Question{
				{Key: "destinations", Text: "Welche Ziele interessieren dich?", Type: model.QuestionMultipleChoice, Options: model.StringArray{"Strand", "Berge", "Stadt"}, Required: true},
				{Key: "budget", Text: "Budget pro Person in EUR", Type: model.QuestionNumber, Required: true},
				{Key: "date", Text: "Wann möchtest du reisen?", Type: model.QuestionDate},
			},
		},
	}
}

func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	for i := range dataTypes {
		dt := dataTypes[i]
		if err := db.Where(model.DataType{Name: dt.Name}).FirstOrCreate(&dt).Error; err != nil {
			log.Fatalf("Failed to seed data type %s: %v", dt.Name, err)
		}
	}
	log.Printf("Seeded %d data types", len(dataTypes))

	if *adminPassword != "" {
		if err := seedAdmin(db, *adminEmail, *adminPassword); err != nil {
			log.Fatalf("Failed to seed admin: %v", err)
		}
	}

	if *withSurveys {
		created := 0
		for _, demo := range demoSurveys() {
			ok, err := seedSurvey(db, demo)
			if err != nil {
				log.Fatalf("Failed to seed survey %s: %v", demo.survey.Title, err)
			}
			if ok {
				created++
			}
		}
		log.Printf("Seeded %d demo surveys", created)
	}
}

func seedAdmin(db *gorm.DB, email, password string) error {
	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != model.RoleAdmin {
			return db.Model(&existing).Update("role", model.RoleAdmin).Error
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "DataFair",
		LastName:     "Admin",
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}
	log.Printf("Created admin %s", email)
	return nil
}

// seedSurvey 同名问卷已存在时跳过
func seedSurvey(db *gorm.DB, demo demoSurvey) (bool, error) {
	var count int64
	if err := db.Model(&model.Survey{}).Where("title = ?", demo.survey.Title).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		survey := demo.survey
		survey.Status = model.SurveyStatusActive
		if err := tx.Create(&survey).Error; err != nil {
			return err
		}
		for i := range demo.questions {
			q := demo.questions[i]
			q.SurveyID = survey.ID
			q.Position = i + 1
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return err == nil, err
}
