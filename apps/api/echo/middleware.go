package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/ratiba/core/user"
)

// roleMiddleware lets through callers holding any of the predicates' roles.
func roleMiddleware(allowed ...func(user.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, ok := range allowed {
				if ok(usr) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.User.IsAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.User.IsTeacher, user.User.IsAdmin)
}

func teacherMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.User.IsTeacher)
}
