package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func parseIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New(name + " not found")
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return 0, errors.New("invalid " + name)
	}

	return uint(id), nil
}

func GetParticipantID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "participant_id")
}

func GetPaymentID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "payment_id")
}

func GetUserID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "user_id")
}

func GetTeamID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "team_id")
}
