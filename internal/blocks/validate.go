package blocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func validateValue(value any) error {
	switch v := value.(type) {
	case RichText:
		if strings.TrimSpace(string(v)) == "" {
			return fmt.Errorf("%w: rich text is required", ErrInvalidBlock)
		}
		return nil
	case CardGrid:
		if len(v.Cards) == 0 {
			return fmt.Errorf("%w: at least one card is required", ErrInvalidBlock)
		}
	}

	if err := validatorInstance().Struct(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlock, err)
	}
	return nil
}
