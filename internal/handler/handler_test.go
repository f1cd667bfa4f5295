package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lanex-quiz-api/internal/models"
	"github.com/noah-isme/lanex-quiz-api/internal/repository"
	"github.com/noah-isme/lanex-quiz-api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// seededServices wires the real answer key and check services over an
// in-memory database loaded with the bundled keys.
func seededServices(t *testing.T) (service.AnswerKeyService, service.CheckService) {
	t.Helper()
	dsn := fmt.Sprintf("file:handler_keys_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TaskKey{}))

	logger := zerolog.Nop()
	repo := repository.NewAnswerKeyRepository(db)
	keys := service.NewAnswerKeyService(repo, nil, time.Minute, logger)
	_, err = service.NewSeedService(repo, keys, validator.New(), false, "", logger).SeedDefaults(context.Background())
	require.NoError(t, err)

	check := service.NewCheckService(keys, nil, time.Minute, validator.New(), service.NewLogCheckPublisher(logger), logger)
	return keys, check
}
