package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/services"
	"github.com/dmitrijs2005/divkeeper/internal/server/snapshot"
	"github.com/labstack/echo/v4"
)

// importBodyLimit leaves room for multipart framing around the container.
const importBodyLimit = "33M"

const containerMIME = "application/x-sqlite3"

func (s *HTTPServer) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}

	token, user, err := s.services.Users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.fail(c, err)
	}

	c.SetCookie(sessionCookie(token, s.services.Users.SessionTTL()))
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": toUserDTO(user)})
}

func (s *HTTPServer) logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (s *HTTPServer) me(c echo.Context) error {
	return c.JSON(http.StatusOK, toUserDTO(currentUser(c)))
}

func (s *HTTPServer) listStocks(c echo.Context) error {
	stocks, err := s.services.Portfolio.ListStocks(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]stockDTO, 0, len(stocks))
	for _, st := range stocks {
		out = append(out, toStockDTO(st))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) createStock(c echo.Context) error {
	var req createStockRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}

	st, err := s.services.Portfolio.CreateStock(c.Request().Context(), currentUser(c).ID, req.model())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": st.ID, "message": "stock created"})
}

func (s *HTTPServer) updateStock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req updateStockRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}

	if err := s.services.Portfolio.UpdateStock(c.Request().Context(), currentUser(c).ID, id, req.model()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "stock updated"})
}

func (s *HTTPServer) deleteStock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.services.Portfolio.DeleteStock(c.Request().Context(), currentUser(c).ID, id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "stock deleted"})
}

func (s *HTTPServer) createDividend(c echo.Context) error {
	var req createDividendRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}

	d, err := s.services.Portfolio.CreateDividend(c.Request().Context(), currentUser(c).ID, &models.Dividend{
		StockID:      req.StockID,
		DividendDate: req.Date,
		Amount:       req.Amount.dec(),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": d.ID, "message": "dividend created"})
}

func (s *HTTPServer) deleteDividend(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.services.Portfolio.DeleteDividend(c.Request().Context(), currentUser(c).ID, id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "dividend deleted"})
}

func (s *HTTPServer) updatePrice(c echo.Context) error {
	var req updatePriceRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}
	if err := s.services.Portfolio.UpdateCurrentPrice(c.Request().Context(), currentUser(c).ID, req.StockID, req.CurrentPrice.dec()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "price updated"})
}

func (s *HTTPServer) refreshPrices(c echo.Context) error {
	n, err := s.services.Prices.Refresh(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "prices refreshed", "updated": n})
}

// price answers 200 in both cases; success tells the caller whether a
// quote was found.
func (s *HTTPServer) price(c echo.Context) error {
	code := c.Param("code")
	price, found, err := s.services.Prices.Lookup(c.Request().Context(), code)
	if err != nil {
		loggerFrom(c, s.logger).Warn(c.Request().Context(), "price lookup failed", "code", code, "error", err)
	}
	if err != nil || !found {
		return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "stock not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "name": code, "price": price})
}

func (s *HTTPServer) export(c echo.Context) error {
	return s.sendSnapshot(c, snapshot.ForUser(currentUser(c).ID))
}

func (s *HTTPServer) exportAll(c echo.Context) error {
	return s.sendSnapshot(c, snapshot.Everything())
}

func (s *HTTPServer) sendSnapshot(c echo.Context, scope snapshot.Scope) error {
	data, _, err := s.services.Portfolio.Export(c.Request().Context(), scope)
	if err != nil {
		return s.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", common.SnapshotFileName))
	return c.Blob(http.StatusOK, containerMIME, data)
}

func (s *HTTPServer) importSnapshot(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "no file"})
	}
	f, err := fh.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, snapshot.MaxContainerSize+1)); err != nil {
		return s.fail(c, fmt.Errorf("%w: read upload: %v", common.ErrTransientIO, err))
	}

	res, err := s.services.Portfolio.Import(c.Request().Context(), currentUser(c).ID, buf.Bytes())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "database imported",
		"stocks":    res.Stocks,
		"dividends": res.Dividends,
		"skipped":   res.Skipped,
	})
}

func (s *HTTPServer) listUsers(c echo.Context) error {
	users, err := s.services.Users.ListUsers(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) createUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}
	u, err := s.services.Users.CreateUser(c.Request().Context(), currentUser(c).ID, services.NewUser{
		Email: req.Email, Password: req.Password, IsAdmin: req.IsAdmin,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toUserDTO(u))
}

func (s *HTTPServer) updateUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, common.ErrValidation)
	}
	u, err := s.services.Users.UpdateUser(c.Request().Context(), currentUser(c).ID, id, services.UserUpdate{
		Password: req.Password, IsAdmin: req.IsAdmin, IsActive: req.IsActive,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserDTO(u))
}

func (s *HTTPServer) deleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.services.Users.DeleteUser(c.Request().Context(), currentUser(c).ID, id); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", common.ErrValidation, c.Param("id"))
	}
	return id, nil
}
