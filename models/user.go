package models

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"userID"`
	CompanyId int       `gorm:"index;not null" json:"-"`
	FirstName string    `gorm:"size:50;not null" json:"firstName"`
	LastName  string    `gorm:"size:50" json:"lastName"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null;default:true" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type NewSignup struct {
	FirstName      string `json:"firstName" form:"firstName" validate:"required,max=50"`
	LastName       string `json:"lastName" form:"lastName" validate:"max=50"`
	Email          string `json:"email" form:"email" validate:"required,email,max=255"`
	Password       string `json:"password" form:"password" validate:"required,min=8,max=20,letternum"`
	CompanyName    string `json:"companyName" form:"companyName" validate:"required,max=100"`
	Address        string `json:"address" form:"address" validate:"max=200"`
	City           string `json:"city" form:"city" validate:"max=50"`
	Zip            string `json:"zip" form:"zip" validate:"omitempty,len=6,numeric"`
	Industry       string `json:"industry" form:"industry" validate:"max=50"`
	CurrencySymbol string `json:"currencySymbol" form:"currencySymbol" validate:"required,max=5"`
}

type LoginUser struct {
	UserID    int    `json:"userID"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type LoginCompany struct {
	CompanyID      int    `json:"companyID"`
	CompanyName    string `json:"companyName"`
	CurrencySymbol string `json:"currencySymbol"`
}

type LoginInfo struct {
	Token   string       `json:"token"`
	User    LoginUser    `json:"user"`
	Company LoginCompany `json:"company"`
}

var errInvalidCredentials = utils.WithMessage(utils.ErrorUnauthorized, "Invalid email or password")

var signupMessages = map[string]map[string]string{
	"firstName": {"required": "First name is required", "max": "First name must be less than 50 characters"},
	"lastName":  {"max": "Last name must be less than 50 characters"},
	"email": {
		"required": "Email is required",
		"email":    "Email is invalid",
		"max":      "Email must be less than 255 characters",
	},
	"password": {
		"required":  "Password is required",
		"min":       "Password must be at least 8 characters",
		"max":       "Password must be at most 20 characters",
		"letternum": "Password must contain letters and numbers",
	},
	"companyName":    {"required": "Company name is required", "max": "Company name must be less than 100 characters"},
	"address":        {"max": "Address must be less than 200 characters"},
	"city":           {"max": "City must be less than 50 characters"},
	"zip":            {"len": "Zip code must be 6 digits", "numeric": "Zip code must be 6 digits"},
	"industry":       {"max": "Industry must be less than 50 characters"},
	"currencySymbol": {"required": "Currency symbol is required", "max": "Currency symbol must be at most 5 characters"},
}

var (
	signupValidate     *validator.Validate
	signupValidateOnce sync.Once
)

func getSignupValidator() *validator.Validate {
	signupValidateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		})
		_ = v.RegisterValidation("letternum", func(fl validator.FieldLevel) bool {
			var letter, digit bool
			for _, r := range fl.Field().String() {
				switch {
				case unicode.IsLetter(r):
					letter = true
				case unicode.IsDigit(r):
					digit = true
				}
			}
			return letter && digit
		})
		signupValidate = v
	})
	return signupValidate
}

func (input *NewSignup) normalize() {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.CompanyName = strings.TrimSpace(input.CompanyName)
	input.Address = strings.TrimSpace(input.Address)
	input.City = strings.TrimSpace(input.City)
	input.Zip = strings.TrimSpace(input.Zip)
	input.Industry = strings.TrimSpace(input.Industry)
	input.CurrencySymbol = strings.TrimSpace(input.CurrencySymbol)
}

// validate returns *invoicing.ValidationError keyed by json field name.
func (input *NewSignup) validate() error {
	err := getSignupValidator().Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &invoicing.ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		msg, ok := signupMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}

func newLoginInfo(user User, company Company, rememberMe bool) (*LoginInfo, error) {
	token, err := utils.JwtGenerate(user.ID, company.ID, user.FullName(), rememberMe)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{
		Token: token,
		User: LoginUser{
			UserID:    user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
		Company: LoginCompany{
			CompanyID:      company.ID,
			CompanyName:    company.CompanyName,
			CurrencySymbol: company.CurrencySymbol,
		},
	}, nil
}

// Signup registers a company with its first user and signs that user in.
func Signup(ctx context.Context, input *NewSignup) (*LoginInfo, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[User](ctx, 0, "email = ?", input.Email)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewInputError("Email is already registered")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	company := Company{
		CompanyName:    input.CompanyName,
		Address:        input.Address,
		City:           input.City,
		Zip:            input.Zip,
		Industry:       input.Industry,
		CurrencySymbol: input.CurrencySymbol,
	}
	active := true
	user := User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  hashed,
		IsActive:  &active,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			return err
		}
		user.CompanyId = company.ID
		return tx.Create(&user).Error
	})
	if utils.IsDuplicateKey(err) {
		return nil, utils.NewInputError("Email is already registered")
	}
	if err != nil {
		config.LogError(config.GetLogger(), "models", "Signup", "create company and user", input.Email, err)
		return nil, err
	}
	return newLoginInfo(user, company, false)
}

// Login checks the credentials and issues a bearer token.
func Login(ctx context.Context, email string, password string, rememberMe bool) (*LoginInfo, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}

	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errInvalidCredentials
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, utils.ErrorUnauthorized) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	var company Company
	if err := db.WithContext(ctx).Take(&company, user.CompanyId).Error; err != nil {
		return nil, err
	}
	return newLoginInfo(user, company, rememberMe)
}
