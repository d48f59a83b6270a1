package webserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/types"
)

type Auth struct {
	db     *gorm.DB
	secret []byte
}

func NewAuth(db *gorm.DB, secret []byte) Auth {
	return Auth{db: db, secret: secret}
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var user types.User
	if err := a.db.First(&user, "email = ?", req.Email).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(12 * time.Hour).Unix(),
	})
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "token signing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}
