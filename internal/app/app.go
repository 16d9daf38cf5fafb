package app

import (
	"recipe-vault/internal/config"
	"recipe-vault/internal/database"
	"recipe-vault/internal/logger"
	"recipe-vault/internal/mealplan"
	"recipe-vault/internal/recipe"
	"recipe-vault/internal/relation"
	"recipe-vault/internal/shopping"
)

// App holds the application's dependencies.
type App struct {
	Cfg *config.Config
	Log *logger.Logger
	DB  *database.DB

	Recipes   *recipe.Repository
	Plans     *mealplan.Repository
	Shopping  *shopping.Repository
	Relations *relation.Service
	Lists     *shopping.Aggregator
}

// New wires the repositories and services over an initialized database.
func New(cfg *config.Config, log *logger.Logger, db *database.DB) *App {
	recipeRepo := recipe.NewRepository(db.SQL)
	relationRepo := relation.NewRepository(db.SQL)
	planRepo := mealplan.NewRepository(db.SQL)
	shoppingRepo := shopping.NewRepository(db.SQL)

	return &App{
		Cfg:       cfg,
		Log:       log,
		DB:        db,
		Recipes:   recipeRepo,
		Plans:     planRepo,
		Shopping:  shoppingRepo,
		Relations: relation.NewService(db.SQL, recipeRepo, relationRepo, log),
		Lists:     shopping.NewAggregator(db.SQL, planRepo, shoppingRepo, log),
	}
}
