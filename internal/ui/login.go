package ui

import (
	"context"
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"worktracker/internal/api"
	"worktracker/internal/service"
)

type Login struct {
	svc       *service.Service
	status    string
	onSuccess func()

	email    *widget.Entry
	password *widget.Entry
	button   *widget.Button
	message  *widget.Label
}

func NewLogin(svc *service.Service, status string, onSuccess func()) *Login {
	return &Login{svc: svc, status: status, onSuccess: onSuccess}
}

func (l *Login) MakeUI() fyne.CanvasObject {
	l.email = widget.NewEntry()
	l.email.PlaceHolder = "Email"

	l.password = widget.NewPasswordEntry()
	l.password.PlaceHolder = "Password"
	l.password.OnSubmitted = func(string) { l.submit() }

	l.message = widget.NewLabel(l.status)
	l.message.Wrapping = fyne.TextWrapWord

	l.button = widget.NewButton("Log in", l.submit)
	l.button.Importance = widget.HighImportance

	title := widget.NewLabel("Work Tracker")
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	return container.NewVBox(
		title,
		widget.NewForm(
			widget.NewFormItem("Email", l.email),
			widget.NewFormItem("Password", l.password),
		),
		l.button,
		l.message,
	)
}

func (l *Login) submit() {
	email, password := l.email.Text, l.password.Text
	l.button.Disable()
	l.message.SetText("Logging in...")

	go func() {
		err := l.svc.Login(context.Background(), email, password)
		fyne.Do(func() {
			l.button.Enable()
			if err != nil {
				l.message.SetText(loginMessage(err))
				return
			}
			l.onSuccess()
		})
	}()
}

func loginMessage(err error) string {
	if errors.Is(err, api.ErrMissingCredentials) {
		return "Please enter email and password"
	}
	return api.Message(err)
}
